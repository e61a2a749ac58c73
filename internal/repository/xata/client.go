// Package xata is the document-store adapter. It talks to the hosted
// database's REST API: exact-match queries over a table, inserts, reads by
// record id, and version-conditional partial updates.
//
// Every call is bounded by the client's timeout. Transport failures, timeouts
// and non-2xx answers are reported as apperror.ErrUpstream so callers never
// confuse a broken store with an absent record.
package xata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxResponseBytes caps how much of a response body we are willing to read.
const maxResponseBytes = 8 << 20

// pageSize is the number of records fetched per query page when scanning a table.
const pageSize = 200

// Client calls the document store. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Config configures a Client.
//
// BaseURL is the database branch URL, e.g.
// https://acme-abc123.eu-central-1.xata.sh/db/moodquest:main
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New creates a Client. The API key is attached as a bearer token to every
// request by the oauth2 transport.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("xata: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("xata: API key is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("xata: invalid base URL: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
	}))
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// statusError is a non-2xx answer from the store.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("xata: HTTP %d: %s", e.Code, e.Body)
}

func statusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("xata: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("xata: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("xata: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("xata: reading response: %w", err)
	}

	c.logger.Debug("document store call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &statusError{Code: resp.StatusCode, Body: snippet}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("xata: decoding response: %w", err)
		}
	}
	return nil
}

// queryRequest is the body of POST /tables/{table}/query.
type queryRequest struct {
	Columns []string       `json:"columns,omitempty"`
	Filter  map[string]any `json:"filter,omitempty"`
	Page    *queryPage     `json:"page,omitempty"`
}

type queryPage struct {
	Size  int    `json:"size,omitempty"`
	After string `json:"after,omitempty"`
}

type queryResponse struct {
	Records []json.RawMessage `json:"records"`
	Meta    struct {
		Page struct {
			Cursor string `json:"cursor"`
			More   bool   `json:"more"`
		} `json:"page"`
	} `json:"meta"`
}

// query runs a single page of a filtered query.
func (c *Client) query(ctx context.Context, table string, req queryRequest) (*queryResponse, error) {
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "/tables/"+url.PathEscape(table)+"/query", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// scan pages through every record of a table matching req, calling fn for each.
func (c *Client) scan(ctx context.Context, table string, req queryRequest, fn func(json.RawMessage)) error {
	req.Page = &queryPage{Size: pageSize}
	for {
		resp, err := c.query(ctx, table, req)
		if err != nil {
			return err
		}
		for _, rec := range resp.Records {
			fn(rec)
		}
		if !resp.Meta.Page.More || resp.Meta.Page.Cursor == "" {
			return nil
		}
		// A cursor carries the original filter and columns, so only the page is sent.
		req = queryRequest{Page: &queryPage{Size: pageSize, After: resp.Meta.Page.Cursor}}
	}
}

// recordMeta is the store-managed part of a record. Older workspaces nest it
// under "xata"; newer ones flatten it into xata_id / xata_version.
type recordMeta struct {
	ID          string `json:"id"`
	XataID      string `json:"xata_id"`
	XataVersion *int   `json:"xata_version"`
	Xata        *struct {
		Version int `json:"version"`
	} `json:"xata"`
}

func (m recordMeta) id() string {
	if m.ID != "" {
		return m.ID
	}
	return m.XataID
}

func (m recordMeta) version() int {
	if m.Xata != nil {
		return m.Xata.Version
	}
	if m.XataVersion != nil {
		return *m.XataVersion
	}
	return 0
}
