// Package webhooks posts sync cycle outcomes to configured HTTP endpoints.
package webhooks

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	qsync "github.com/lherron/quotesync/internal/sync"
)

const (
	defaultTimeout     = 500 * time.Millisecond
	defaultConcurrency = 4
)

// Payload is the body posted for each cycle.
type Payload struct {
	Event            string `json:"event"`
	Trigger          string `json:"trigger"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	Pushed           int    `json:"pushed"`
	PushFailed       int    `json:"push_failed"`
	Pulled           int    `json:"pulled"`
	Conflicts        int    `json:"conflict_count"`
	PendingConflicts int    `json:"pending_conflicts"`
	Time             string `json:"time"`
}

// Options configures a Dispatcher.
type Options struct {
	Timeout     time.Duration
	Concurrency int
	// SkipSkipped suppresses posts for cycles refused because another was running.
	SkipSkipped bool
	Logger      *log.Logger
}

// Dispatcher implements sync.Observer. Posts run in the background; Wait
// blocks until they are done.
type Dispatcher struct {
	urls        []string
	client      *http.Client
	concurrency int
	skipSkipped bool
	logger      *log.Logger
	inflight    sync.WaitGroup
}

// New normalizes urls and returns a dispatcher. Invalid and duplicate URLs are
// dropped with a log line.
func New(urls []string, opts Options) *Dispatcher {
	d := &Dispatcher{
		client:      &http.Client{Timeout: opts.Timeout},
		concurrency: opts.Concurrency,
		skipSkipped: opts.SkipSkipped,
		logger:      opts.Logger,
	}
	if d.client.Timeout <= 0 {
		d.client.Timeout = defaultTimeout
	}
	if d.concurrency <= 0 {
		d.concurrency = defaultConcurrency
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}
	d.urls = normalizeURLs(urls, d.logger)
	return d
}

// Targets returns the URLs that will receive posts.
func (d *Dispatcher) Targets() []string {
	return append([]string(nil), d.urls...)
}

// ObserveCycle posts the cycle outcome to every target.
func (d *Dispatcher) ObserveCycle(res *qsync.Result) {
	if len(d.urls) == 0 {
		return
	}
	if d.skipSkipped && res.Status == qsync.StatusSkipped {
		return
	}

	payload := Payload{
		Event:            "sync.cycle",
		Trigger:          string(res.Trigger),
		Status:           string(res.Status),
		Message:          res.Message,
		Pushed:           res.Pushed,
		PushFailed:       res.PushFailed,
		Pulled:           res.Pulled,
		Conflicts:        res.Conflicts,
		PendingConflicts: res.PendingConflicts,
		Time:             res.FinishedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Printf("failed to encode payload: %v", err)
		return
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.dispatch(body)
	}()
}

// Wait blocks until every post started so far has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) dispatch(body []byte) {
	workers := d.concurrency
	if len(d.urls) < workers {
		workers = len(d.urls)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				d.send(endpoint, body)
			}
		}()
	}

	for _, endpoint := range d.urls {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()
}

func (d *Dispatcher) send(endpoint string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		d.logger.Printf("build request %q failed: %v", endpoint, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Printf("request to %q failed: %v", endpoint, err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.logger.Printf("request to %q returned %s", endpoint, resp.Status)
	}
}

func normalizeURLs(urls []string, logger *log.Logger) []string {
	if len(urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	var normalized []string
	for _, raw := range urls {
		trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
		if trimmed == "" {
			continue
		}
		if !isValidURL(trimmed) {
			logger.Printf("skipping invalid url %q", trimmed)
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

func isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
