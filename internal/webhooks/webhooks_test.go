package webhooks_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	stdsync "sync"
	"testing"
	"time"

	qsync "github.com/lherron/quotesync/internal/sync"
	"github.com/lherron/quotesync/internal/webhooks"
)

type capture struct {
	mu       stdsync.Mutex
	payloads []webhooks.Payload
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p webhooks.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("bad payload %s: %v", body, err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestNew_NormalizesTargets(t *testing.T) {
	d := webhooks.New([]string{
		" http://example.com/hook/ ",
		"http://example.com/hook",
		"ftp://invalid.example.com/hook",
		"",
		"https://example.com/other",
	}, webhooks.Options{})

	want := []string{"http://example.com/hook", "https://example.com/other"}
	if got := d.Targets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Targets() = %v, want %v", got, want)
	}
}

func TestObserveCycle_PostsPayload(t *testing.T) {
	var a, b capture
	srvA := httptest.NewServer(a.handler(t))
	defer srvA.Close()
	srvB := httptest.NewServer(b.handler(t))
	defer srvB.Close()

	d := webhooks.New([]string{srvA.URL, srvB.URL}, webhooks.Options{Timeout: time.Second})
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.ObserveCycle(&qsync.Result{
		Trigger:          qsync.TriggerScheduled,
		Status:           qsync.StatusOK,
		FinishedAt:       finished,
		Pushed:           1,
		Conflicts:        2,
		PendingConflicts: 3,
		Message:          "Last synced: now",
	})
	d.Wait()

	for name, c := range map[string]*capture{"a": &a, "b": &b} {
		if len(c.payloads) != 1 {
			t.Fatalf("%s received %d payloads", name, len(c.payloads))
		}
		p := c.payloads[0]
		if p.Event != "sync.cycle" || p.Status != "ok" || p.Trigger != "scheduled" {
			t.Errorf("%s payload = %+v", name, p)
		}
		if p.Conflicts != 2 || p.PendingConflicts != 3 || p.Pushed != 1 {
			t.Errorf("%s counts = %+v", name, p)
		}
		if p.Time != "2026-03-01T12:00:00Z" {
			t.Errorf("%s time = %q", name, p.Time)
		}
	}
}

func TestObserveCycle_SkipSkipped(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	d := webhooks.New([]string{srv.URL}, webhooks.Options{SkipSkipped: true})
	d.ObserveCycle(&qsync.Result{Status: qsync.StatusSkipped})
	d.Wait()

	if len(c.payloads) != 0 {
		t.Fatalf("skipped cycle was posted: %+v", c.payloads)
	}
}

func TestObserveCycle_UnreachableTargetDoesNotBlock(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := webhooks.New([]string{url}, webhooks.Options{Timeout: 100 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		d.ObserveCycle(&qsync.Result{Status: qsync.StatusPullFailed})
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch to unreachable target did not finish")
	}
}
