package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// AccountInfo is the typed form of a user's account_info blob.
// A nil pointer is serialised as JSON null.
type AccountInfo struct {
	Level         *int64 `json:"level"`
	Decorations   *int64 `json:"decorations"`
	Points        *int64 `json:"points"`
	Premium       *bool  `json:"premium"`
	Days          *int64 `json:"days"`
	RestartStreak *int64 `json:"restart_streak"`
	Leaderboard   *int64 `json:"leaderboard"`
	Picture       *int64 `json:"picture"`
	Status        *int64 `json:"status"`
	MoodStatus    *int64 `json:"mood_status"`
}

// AccountInfoKeys is the allow-list of keys a client may update.
var AccountInfoKeys = []string{
	"level", "decorations", "points", "premium", "days",
	"restart_streak", "leaderboard", "picture", "status", "mood_status",
}

// DefaultAccountInfo is what a freshly registered user starts with:
// counters at zero, flags false, everything else null.
func DefaultAccountInfo() AccountInfo {
	zero := func() *int64 { v := int64(0); return &v }
	premium := false
	return AccountInfo{
		Level:         zero(),
		Points:        zero(),
		Premium:       &premium,
		Days:          zero(),
		RestartStreak: zero(),
	}
}

// PointsOrZero and DaysOrZero read counters for ranking.
func (a AccountInfo) PointsOrZero() int64 { return deref(a.Points) }
func (a AccountInfo) DaysOrZero() int64   { return deref(a.Days) }

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// FieldError reports a patch value whose JSON type does not fit the field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errNotInteger = errors.New("must be an integer or null")

// field returns a pointer to the struct field backing key, or nil for keys
// outside the allow-list.
func (a *AccountInfo) field(key string) any {
	switch key {
	case "level":
		return &a.Level
	case "decorations":
		return &a.Decorations
	case "points":
		return &a.Points
	case "premium":
		return &a.Premium
	case "days":
		return &a.Days
	case "restart_streak":
		return &a.RestartStreak
	case "leaderboard":
		return &a.Leaderboard
	case "picture":
		return &a.Picture
	case "status":
		return &a.Status
	case "mood_status":
		return &a.MoodStatus
	}
	return nil
}

// Merge applies a shallow patch. Keys outside the allow-list are returned in
// dropped and otherwise ignored. A value of the wrong type yields a
// *FieldError and leaves a untouched.
func (a *AccountInfo) Merge(patch map[string]json.RawMessage) (dropped []string, err error) {
	next := *a
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		dst := next.field(key)
		if dst == nil {
			dropped = append(dropped, key)
			continue
		}
		if err := decodeField(dst, patch[key]); err != nil {
			return nil, &FieldError{Field: key, Err: err}
		}
	}

	*a = next
	return dropped, nil
}

// UnmarshalJSON is lenient per field: the blob must be a JSON object, but a
// field holding a value of the wrong type is treated as absent. Stored data
// written by older clients must not make a whole record unreadable.
func (a *AccountInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("account_info: %w", err)
	}
	if raw == nil {
		return errors.New("account_info: not an object")
	}

	var out AccountInfo
	for key, value := range raw {
		if dst := out.field(key); dst != nil {
			_ = decodeField(dst, value)
		}
	}
	*a = out
	return nil
}

func decodeField(dst any, raw json.RawMessage) error {
	switch p := dst.(type) {
	case **int64:
		v, err := decodeInt(raw)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case **bool:
		if isNull(raw) {
			*p = nil
			return nil
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return errors.New("must be a boolean or null")
		}
		*p = &b
		return nil
	}
	return fmt.Errorf("unsupported field type %T", dst)
}

// decodeInt accepts JSON null, integers, and floats with no fractional part.
func decodeInt(raw json.RawMessage) (*int64, error) {
	if isNull(raw) {
		return nil, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		return nil, errNotInteger
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return nil, errNotInteger
	}
	if i, err := n.Int64(); err == nil {
		return &i, nil
	}
	if !bytes.ContainsAny(raw, ".eE") {
		// An integer literal that Int64 rejected is out of range.
		return nil, errNotInteger
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, errNotInteger
	}
	i := int64(f)
	return &i, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}
