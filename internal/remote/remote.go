// Package remote talks to the authoritative JSON collection over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lherron/quotesync/internal/domain"
)

const (
	DefaultBaseURL    = "https://jsonplaceholder.typicode.com"
	DefaultCollection = "posts"
	DefaultTimeout    = 10 * time.Second

	maxResponseBytes = 8 << 20
)

// Gateway is the remote authority as seen by the sync engine.
type Gateway interface {
	// FetchSnapshot returns up to limit items, or an error and no items.
	FetchSnapshot(ctx context.Context, limit int) ([]domain.RemoteRecord, error)

	// Create submits a new item and returns it with the id the remote assigned.
	Create(ctx context.Context, text, category string) (domain.RemoteRecord, error)
}

// Post is the wire shape of one collection item.
type Post struct {
	ID     *int64 `json:"id,omitempty"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId,omitempty"`
}

// MapPost converts a wire item to a remote record. Blank fields fall back to
// placeholder values.
func MapPost(p Post, fetchedAt time.Time) domain.RemoteRecord {
	rr := domain.RemoteRecord{
		Text:      strings.TrimSpace(p.Body),
		Category:  strings.TrimSpace(p.Title),
		FetchedAt: fetchedAt,
	}
	if p.ID != nil {
		rr.RemoteID = *p.ID
	}
	if rr.Text == "" {
		rr.Text = "(empty)"
	}
	if rr.Category == "" {
		rr.Category = "General"
	}
	return rr
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Collection string
	UserID     int
	Timeout    time.Duration
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	endpoint string
	userID   int
	http     *http.Client
	logger   *log.Logger
	now      func() time.Time
}

// NewClient validates cfg and returns a client. A nil logger discards output.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserID == 0 {
		cfg.UserID = 1
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", cfg.BaseURL)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Client{
		endpoint: base.String() + "/" + url.PathEscape(strings.Trim(cfg.Collection, "/")),
		userID:   cfg.UserID,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Endpoint returns the collection URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchSnapshot issues GET <collection>?_limit=N.
func (c *Client) FetchSnapshot(ctx context.Context, limit int) ([]domain.RemoteRecord, error) {
	target := c.endpoint
	if limit > 0 {
		target += "?_limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "fetch", URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "fetch")
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &domain.MalformedSnapshotError{Reason: "snapshot is not a JSON array"}
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.MalformedSnapshotError{Reason: "snapshot is not a JSON array", Err: err}
	}

	fetchedAt := c.now()
	out := make([]domain.RemoteRecord, 0, len(raw))
	for i, item := range raw {
		var p Post
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, &domain.MalformedSnapshotError{Reason: fmt.Sprintf("item %d is not a post", i), Err: err}
		}
		if p.ID == nil {
			return nil, &domain.MalformedSnapshotError{Reason: fmt.Sprintf("item %d has no id", i)}
		}
		out = append(out, MapPost(p, fetchedAt))
	}

	c.logger.Printf("fetched %d items from %s", len(out), target)
	return out, nil
}

// Create issues POST <collection> with the record mapped to the wire shape.
func (c *Client) Create(ctx context.Context, text, category string) (domain.RemoteRecord, error) {
	payload, err := json.Marshal(Post{Title: category, Body: text, UserID: c.userID})
	if err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.RemoteRecord{}, &domain.TransportError{Op: "create", URL: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "create")
	if err != nil {
		return domain.RemoteRecord{}, err
	}

	var created Post
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.RemoteRecord{}, &domain.MalformedSnapshotError{Reason: "create response is not a post", Err: err}
	}
	if created.ID == nil {
		return domain.RemoteRecord{}, &domain.MalformedSnapshotError{Reason: "create response has no id"}
	}

	// Echoed fields may be missing; the submitted content is authoritative.
	if strings.TrimSpace(created.Body) == "" {
		created.Body = text
	}
	if strings.TrimSpace(created.Title) == "" {
		created.Title = category
	}
	return MapPost(created, c.now()), nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.TransportError{Op: op, URL: req.URL.String(), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.TransportError{
			Op:         op,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(truncate(body, 200)))),
		}
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
