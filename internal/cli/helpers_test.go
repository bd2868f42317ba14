package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/config"
	"github.com/lherron/quotesync/internal/events"
	"github.com/lherron/quotesync/internal/kv"
	"github.com/lherron/quotesync/internal/remote"
	"github.com/lherron/quotesync/internal/store"
	"github.com/lherron/quotesync/internal/testutil"
)

// fakeRemote behaves like a JSONPlaceholder posts collection: created posts
// get an id but never show up in later listings.
type fakeRemote struct {
	mu       sync.Mutex
	posts    []remote.Post
	nextID   int64
	failPost bool
	created  []remote.Post
}

func newFakeRemote(t *testing.T, posts ...remote.Post) (*fakeRemote, *httptest.Server) {
	t.Helper()
	f := &fakeRemote{posts: posts, nextID: 101}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/posts" {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		out := f.posts
		if v := r.URL.Query().Get("_limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n < len(out) {
				out = out[:n]
			}
		}
		if out == nil {
			out = []remote.Post{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		if f.failPost {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var p remote.Post
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := f.nextID
		f.nextID++
		p.ID = &id
		f.created = append(f.created, p)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeRemote) createdPosts() []remote.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Post(nil), f.created...)
}

func post(id int64, title, body string) remote.Post {
	return remote.Post{ID: &id, Title: title, Body: body}
}

// setupTestApp builds an App over a migrated temp database, an empty store
// and a client for baseURL.
func setupTestApp(t *testing.T, baseURL string) *appctx.App {
	t.Helper()
	database, dbPath := testutil.TempDB(t)

	st, err := store.Open(kv.NewSQLite(database), store.Options{})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	cfg := config.Defaults()
	cfg.DBPath = dbPath
	cfg.RemoteURL = baseURL

	client, err := remote.NewClient(remote.Config{
		BaseURL:    baseURL,
		Collection: "posts",
		Timeout:    2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to build client: %v", err)
	}

	return &appctx.App{
		Config:  cfg,
		DB:      database,
		Store:   st,
		Remote:  client,
		History: events.NewWriter(database.DB),
	}
}

// newTestCmd returns a command with captured stdout and stderr.
func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	return cmd, &stdout, &stderr
}

// resetFlags restores every command flag variable before and after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		addCategory, addJSON = "", false
		lsCategory, lsLimit, lsCursor = "", 0, ""
		lsOutput.reset()
		randomCategory, randomJSON = "", false
		categoriesJSON = false
		syncJSON, syncQuiet = false, false
		statusJSON = false
		conflictsOutput.reset()
		conflictsShowJSON = false
		resolveKeep, resolveAll, resolveJobs, resolveContinueOnError = "", false, 1, false
		exportOutput, exportCanonical, exportCategory, exportJSON = "", false, "", false
		importFormat, importDryRun, importJSON = "", false, false
		logLimit, logCursor = 20, ""
		logOutput.reset()
		versionJSON = false
		initNoSeed = false
	}
	reset()
	t.Cleanup(reset)
}
