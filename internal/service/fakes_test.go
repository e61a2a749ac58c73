package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// They follow the same contracts as the real stores (NotFound for absent
// records, Conflict for stale versions and duplicate ids) and expose knobs
// to simulate store failures and concurrent writers.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	order  []string
	nextID int

	findErr   error
	getErr    error
	insertErr error
	listErr   error

	// beforeUpdate runs inside Update before the version check; tests use it
	// to simulate another writer landing between our read and our write.
	beforeUpdate func(stored *model.User)
	updateCalls  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

// clone deep-copies a user so callers never share blob state with the store.
func clone(u *model.User) *model.User {
	c := *u
	stats, _ := json.Marshal(u.Statistics)
	info, _ := json.Marshal(u.AccountInfo)
	c.Statistics = model.Statistics{}
	c.AccountInfo = model.AccountInfo{}
	_ = json.Unmarshal(stats, &c.Statistics)
	_ = json.Unmarshal(info, &c.AccountInfo)
	return &c
}

func (m *mockUserRepo) FindByLogin(_ context.Context, login string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, id := range m.order {
		if u := m.users[id]; u.Login == login {
			return clone(u), nil
		}
	}
	return nil, apperror.NotFound("user", login)
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return clone(u), nil
}

func (m *mockUserRepo) Insert(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	user.ID = fmt.Sprintf("rec_%d", m.nextID)
	user.Version = 0
	m.users[user.ID] = clone(user)
	m.order = append(m.order, user.ID)
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	stored, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate(stored)
	}
	if stored.Version != user.Version {
		return apperror.Conflict("record version changed")
	}
	next := clone(user)
	next.Version = stored.Version + 1
	next.Login = stored.Login
	next.PasswordHash = stored.PasswordHash
	m.users[user.ID] = next
	user.Version = next.Version
	return nil
}

func (m *mockUserRepo) ListAccounts(_ context.Context) ([]model.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.AccountSummary, 0, len(m.order))
	for _, id := range m.order {
		u := m.users[id]
		out = append(out, model.AccountSummary{UserID: u.ID, Login: u.Login, AccountInfo: clone(u).AccountInfo})
	}
	return out, nil
}

// stored returns the store's current copy of a user.
func (m *mockUserRepo) stored(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.users[id])
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	getErr   error
	pruned   int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]model.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return apperror.Conflict("session id already exists")
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *mockSessionRepo) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", "<redacted>")
	}
	return &s, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	m.pruned++
	return n, nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *mockSessionRepo) pruneCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruned
}

type mockFlashcardRepo struct {
	cards map[string]model.Flashcard
	names map[string]string
}

func (m *mockFlashcardRepo) ListFlashcards(_ context.Context) ([]model.FlashcardSummary, error) {
	out := make([]model.FlashcardSummary, 0, len(m.names))
	for id, name := range m.names {
		out = append(out, model.FlashcardSummary{ID: id, Name: name})
	}
	return out, nil
}

func (m *mockFlashcardRepo) GetFlashcard(_ context.Context, id string) (*model.Flashcard, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, apperror.NotFound("flashcard", id)
	}
	return &c, nil
}

// fakeEngine is a canned MoodEngine.
type fakeEngine struct {
	questions []model.MoodQuestion
	score     int
	scoreOK   bool
	scored    [][]model.MoodAnswer
}

func (f *fakeEngine) Generate(context.Context) []model.MoodQuestion { return f.questions }

func (f *fakeEngine) Score(_ context.Context, answers []model.MoodAnswer) (int, bool) {
	f.scored = append(f.scored, answers)
	return f.score, f.scoreOK
}
