package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/events"
	qsync "github.com/lherron/quotesync/internal/sync"
	"github.com/lherron/quotesync/internal/testutil"
)

func TestAddCommand(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)

	cmd, stdout, _ := newTestCmd()
	addCategory = "Wisdom"
	if err := runAdd(app, cmd, []string{"Keep", "it", "simple."}); err != nil {
		t.Fatalf("runAdd failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Added ")

	all := app.Store.Records.All()
	if len(all) != 1 {
		t.Fatalf("records = %d, want 1", len(all))
	}
	if all[0].Text != "Keep it simple." || all[0].Origin != domain.OriginLocal || all[0].HasRemote() {
		t.Errorf("stored record = %+v", all[0])
	}
}

func TestAddCommand_RejectsBlankCategory(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)

	cmd, _, _ := newTestCmd()
	addCategory = "   "
	err := runAdd(app, cmd, []string{"text"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	if app.Store.Records.Len() != 0 {
		t.Error("nothing should be stored")
	}
}

func TestLsCommand_CategoryFilterJSON(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	for _, q := range [][2]string{{"a", "Wisdom"}, {"b", "Humor"}, {"c", "wisdom"}} {
		if _, err := app.Store.Records.Add(q[0], q[1]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	cmd, stdout, _ := newTestCmd()
	lsCategory = "WISDOM"
	lsOutput.json = true
	if err := runLs(app, cmd, nil); err != nil {
		t.Fatalf("runLs failed: %v", err)
	}

	var got []domain.Record
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
	}
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "c" {
		t.Fatalf("filtered = %+v", got)
	}
}

func TestLsCommand_SelectedCategoryAndPagination(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		rec, err := app.Store.Records.Add(text, "Pick")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		ids = append(ids, rec.LocalID)
	}
	if _, err := app.Store.Records.Add("other", "Skip"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := app.Store.Meta.SetSelectedCategory("Pick"); err != nil {
		t.Fatalf("SetSelectedCategory: %v", err)
	}

	cmd, stdout, stderr := newTestCmd()
	lsLimit = 2
	lsOutput.porcelain = true
	if err := runLs(app, cmd, nil); err != nil {
		t.Fatalf("runLs failed: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, ids[0]) || !strings.Contains(out, ids[1]) || strings.Contains(out, ids[2]) {
		t.Fatalf("first page = %q", out)
	}
	if strings.Contains(out, "other") {
		t.Fatalf("saved category not applied: %q", out)
	}
	line := strings.TrimSpace(stderr.String())
	if !strings.HasPrefix(line, "next_cursor=") {
		t.Fatalf("expected next_cursor on stderr, got %q", line)
	}

	cmd, stdout, stderr = newTestCmd()
	lsCursor = strings.TrimPrefix(line, "next_cursor=")
	if err := runLs(app, cmd, nil); err != nil {
		t.Fatalf("runLs page 2 failed: %v", err)
	}
	if out := stdout.String(); !strings.Contains(out, ids[2]) || strings.Contains(out, ids[0]) {
		t.Fatalf("second page = %q", out)
	}
	if stderr.Len() != 0 {
		t.Errorf("last page should not print a cursor, got %q", stderr.String())
	}
}

func TestCategoriesCommand(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	app.Store.Records.Add("a", "Life")
	app.Store.Records.Add("b", "Humor")

	cmd, stdout, _ := newTestCmd()
	if err := runCategoriesUse(app, cmd, []string{"life"}); err != nil {
		t.Fatalf("runCategoriesUse failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Showing category life")

	cmd, stdout, _ = newTestCmd()
	if err := runCategories(app, cmd, nil); err != nil {
		t.Fatalf("runCategories failed: %v", err)
	}
	want := "  all\n  Humor\n* Life\n"
	if stdout.String() != want {
		t.Fatalf("categories output = %q, want %q", stdout.String(), want)
	}

	cmd, _, _ = newTestCmd()
	if err := runCategoriesUse(app, cmd, []string{"all"}); err != nil {
		t.Fatalf("runCategoriesUse all failed: %v", err)
	}
	selected, _ := app.Store.Meta.SelectedCategory()
	if selected != "" {
		t.Errorf("selection after 'all' = %q, want cleared", selected)
	}
}

func TestRandomCommand(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)

	cmd, _, _ := newTestCmd()
	if err := runRandom(app, cmd, nil); err == nil {
		t.Fatal("expected error for an empty collection")
	}

	app.Store.Records.Add("first", "A")
	app.Store.Records.Add("second", "A")
	orig := randomIndex
	randomIndex = func(n int) int { return n - 1 }
	t.Cleanup(func() { randomIndex = orig })

	cmd, stdout, _ := newTestCmd()
	if err := runRandom(app, cmd, nil); err != nil {
		t.Fatalf("runRandom failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), `"second"`)
}

func TestSyncCommand_PushThenMerge(t *testing.T) {
	resetFlags(t)
	remoteSrv, srv := newFakeRemote(t, post(1, "Server", "from the server"))
	app := setupTestApp(t, srv.URL)
	if _, err := app.Store.Records.Add("mine", "Local"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cmd, stdout, _ := newTestCmd()
	syncJSON = true
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("runSync failed: %v", err)
	}

	var res qsync.Result
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
	}
	if res.Status != qsync.StatusOK || res.Pushed != 1 || res.Pulled != 1 || res.Inserted != 1 {
		t.Fatalf("result = %+v", res)
	}
	created := remoteSrv.createdPosts()
	if len(created) != 1 || created[0].Body != "mine" || created[0].Title != "Local" {
		t.Fatalf("created = %+v", created)
	}

	pushed, ok := app.Store.Records.FindByRemoteID(101)
	if !ok || pushed.Text != "mine" || pushed.Origin != domain.OriginRemote {
		t.Errorf("pushed record = %+v, %v", pushed, ok)
	}
	pulled, ok := app.Store.Records.FindByLocalID("srv-1")
	if !ok || pulled.Text != "from the server" || pulled.Category != "Server" {
		t.Errorf("pulled record = %+v, %v", pulled, ok)
	}
	if _, ok, _ := app.Store.Meta.LastSynced(); !ok {
		t.Error("last synced should be set")
	}

	history, _, err := app.History.List(cmd.Context(), events.ListOptions{})
	if err != nil || len(history) != 1 || history[0].Status != "ok" {
		t.Fatalf("history = %+v, %v", history, err)
	}
}

func TestSyncCommand_OfflineLeavesDataAlone(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	app.Store.Records.Add("offline edit", "Local")
	srv.Close()

	cmd, stdout, _ := newTestCmd()
	err := runSync(app, cmd, nil)
	if err == nil {
		t.Fatal("expected sync to fail")
	}
	if !domain.IsTransport(err) {
		t.Errorf("expected a transport error, got %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Sync failed")

	all := app.Store.Records.All()
	if len(all) != 1 || all[0].HasRemote() || all[0].Origin != domain.OriginLocal {
		t.Fatalf("records after failed sync = %+v", all)
	}
	if _, ok, _ := app.Store.Meta.LastSynced(); ok {
		t.Error("last synced must not move on a failed sync")
	}
}

func TestConflictsShowAndResolve(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t, post(1, "Wisdom", "server text"))
	app := setupTestApp(t, srv.URL)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := app.Store.Records.UpsertByLocalID(testutil.RemoteRecord("l1", 1, "local text", "Wisdom", before)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cmd, _, _ := newTestCmd()
	syncQuiet = true
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("runSync failed: %v", err)
	}
	if app.Store.Conflicts.Len() != 1 {
		t.Fatalf("conflicts = %d, want 1", app.Store.Conflicts.Len())
	}

	cmd, stdout, _ := newTestCmd()
	if err := runConflicts(app, cmd, nil); err != nil {
		t.Fatalf("runConflicts failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "#0")

	cmd, stdout, _ = newTestCmd()
	if err := runConflictsShow(app, cmd, []string{"r:1"}); err != nil {
		t.Fatalf("runConflictsShow failed: %v", err)
	}
	diff := stdout.String()
	testutil.AssertStringContains(t, diff, "-local text")
	testutil.AssertStringContains(t, diff, "+server text")

	cmd, stdout, _ = newTestCmd()
	resolveKeep = "local"
	if err := runResolve(app, cmd, []string{"#0"}); err != nil {
		t.Fatalf("runResolve failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Resolved ")

	rec, _ := app.Store.Records.FindByLocalID("l1")
	if rec.Text != "local text" || rec.Origin != domain.OriginLocal {
		t.Errorf("record after keep local = %+v", rec)
	}
	if app.Store.Conflicts.Len() != 0 {
		t.Error("conflict should leave the queue")
	}

	cmd, _, _ = newTestCmd()
	if err := runResolve(app, cmd, []string{"#0"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("resolving again should report not found, got %v", err)
	}
}

func TestResolveCommand_All(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t, post(1, "A", "server one"), post(2, "A", "server two"))
	app := setupTestApp(t, srv.URL)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	app.Store.Records.UpsertByLocalID(testutil.RemoteRecord("l1", 1, "local one", "A", at))
	app.Store.Records.UpsertByLocalID(testutil.RemoteRecord("l2", 2, "local two", "A", at))

	cmd, _, _ := newTestCmd()
	syncQuiet = true
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("runSync failed: %v", err)
	}

	cmd, stdout, _ := newTestCmd()
	resolveKeep = "server"
	resolveAll = true
	if err := runResolve(app, cmd, nil); err != nil {
		t.Fatalf("runResolve --all failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Resolved 2 conflicts")
	for _, localID := range []string{"l1", "l2"} {
		rec, _ := app.Store.Records.FindByLocalID(localID)
		if !strings.HasPrefix(rec.Text, "server") || rec.Origin != domain.OriginRemote {
			t.Errorf("%s = %+v", localID, rec)
		}
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	app.Store.Records.Add("pending", "A")

	cmd, stdout, _ := newTestCmd()
	statusJSON = true
	if err := runStatus(app, cmd, nil); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}

	var report statusReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Quotes != 1 || report.LocalOnly != 1 || report.LastSyncedAt != nil || report.SelectedCategory != "all" {
		t.Fatalf("report = %+v", report)
	}
	if report.Remote != srv.URL+"/posts" {
		t.Errorf("remote = %q", report.Remote)
	}
}

func TestExportImportCommands(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	src := setupTestApp(t, srv.URL)
	src.Store.Records.Add("exported one", "A")
	src.Store.Records.Add("exported two", "B")

	path := filepath.Join(t.TempDir(), "quotes.json")
	cmd, stdout, _ := newTestCmd()
	exportOutput = path
	if err := runExport(src, cmd, nil); err != nil {
		t.Fatalf("runExport failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Exported 2 quotes")

	dst := setupTestApp(t, srv.URL)
	cmd, stdout, _ = newTestCmd()
	importDryRun = true
	if err := runImport(dst, cmd, []string{path}); err != nil {
		t.Fatalf("dry-run import failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "Would import: 2 added")
	if dst.Store.Records.Len() != 0 {
		t.Fatal("dry run must not write")
	}

	cmd, _, _ = newTestCmd()
	importDryRun = false
	if err := runImport(dst, cmd, []string{path}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if dst.Store.Records.Len() != 2 {
		t.Fatalf("imported records = %d", dst.Store.Records.Len())
	}
	for _, rec := range src.Store.Records.All() {
		got, ok := dst.Store.Records.FindByLocalID(rec.LocalID)
		if !ok || got.Text != rec.Text || got.Category != rec.Category {
			t.Errorf("imported %s = %+v, %v", rec.LocalID, got, ok)
		}
	}
}

func TestImportCommand_Stdin(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)

	cmd, stdout, _ := newTestCmd()
	cmd.SetIn(strings.NewReader("- text: from yaml\n  category: Piped\n"))
	if err := runImport(app, cmd, []string{"-"}); err != nil {
		t.Fatalf("stdin import failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "1 added")
	if got := app.Store.Records.Filter("Piped"); len(got) != 1 || got[0].Text != "from yaml" {
		t.Fatalf("records = %+v", got)
	}
}

func TestLogCommand(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)

	cmd, stdout, _ := newTestCmd()
	if err := runLog(app, cmd, nil); err != nil {
		t.Fatalf("runLog failed: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "No sync history")

	syncQuiet = true
	for i := 0; i < 3; i++ {
		c, _, _ := newTestCmd()
		if err := runSync(app, c, nil); err != nil {
			t.Fatalf("runSync failed: %v", err)
		}
	}

	cmd, stdout, stderr := newTestCmd()
	logLimit = 2
	logOutput.json = true
	logOutput.porcelain = true
	if err := runLog(app, cmd, nil); err != nil {
		t.Fatalf("runLog failed: %v", err)
	}
	var got []domain.SyncEvent
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	testutil.AssertStringContains(t, stderr.String(), "next_cursor=")
}

func TestVersionCommand_JSON(t *testing.T) {
	resetFlags(t)
	cmd, stdout, _ := newTestCmd()
	versionJSON = true
	if err := runVersion(cmd, nil); err != nil {
		t.Fatalf("runVersion failed: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["version"] != Version {
		t.Errorf("version = %v", out["version"])
	}
}

func TestSyncCommand_PushFailureRetriedNextCycle(t *testing.T) {
	resetFlags(t)
	fake, srv := newFakeRemote(t)
	app := setupTestApp(t, srv.URL)
	app.Store.Records.Add("retry me", "Local")

	fake.mu.Lock()
	fake.failPost = true
	fake.mu.Unlock()

	cmd, stdout, _ := newTestCmd()
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("partial push should not fail the cycle: %v", err)
	}
	testutil.AssertStringContains(t, stdout.String(), "push partially failed")
	if got := app.Store.Records.UnsyncedLocalOnly(); len(got) != 1 {
		t.Fatalf("record should stay local-only, got %+v", got)
	}

	fake.mu.Lock()
	fake.failPost = false
	fake.mu.Unlock()

	cmd, _, _ = newTestCmd()
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if got := app.Store.Records.UnsyncedLocalOnly(); len(got) != 0 {
		t.Fatalf("record should be pushed on retry, got %+v", got)
	}
}

func TestResolveCommand_SeveralSelectors(t *testing.T) {
	resetFlags(t)
	_, srv := newFakeRemote(t,
		post(1, "A", "server one"), post(2, "A", "server two"), post(3, "A", "server three"))
	app := setupTestApp(t, srv.URL)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"local one", "local two", "local three"} {
		rec := testutil.RemoteRecord("l"+strconv.Itoa(i+1), int64(i+1), text, "A", at)
		if err := app.Store.Records.UpsertByLocalID(rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	cmd, _, _ := newTestCmd()
	syncQuiet = true
	if err := runSync(app, cmd, nil); err != nil {
		t.Fatalf("runSync failed: %v", err)
	}

	// #0 and #2 refer to the queue as listed before anything is removed.
	cmd, stdout, _ := newTestCmd()
	resolveKeep = "local"
	resolveJobs = 2
	if err := runResolve(app, cmd, []string{"#0", "#2", "r:1"}); err != nil {
		t.Fatalf("runResolve failed: %v\n%s", err, stdout.String())
	}
	testutil.AssertStringContains(t, stdout.String(), "All 2 operations succeeded")

	for localID, want := range map[string]string{"l1": "local one", "l2": "server two", "l3": "local three"} {
		rec, _ := app.Store.Records.FindByLocalID(localID)
		if rec.Text != want {
			t.Errorf("%s text = %q, want %q", localID, rec.Text, want)
		}
	}
	if left := app.Store.Conflicts.List(); len(left) != 1 || left[0].RemoteID != 2 {
		t.Fatalf("remaining conflicts = %+v", left)
	}
}
