package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	qsync "github.com/lherron/quotesync/internal/sync"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Unix(1700000000, 0)
	m.ObserveCycle(&qsync.Result{
		Status:           qsync.StatusPushPartial,
		StartedAt:        start,
		FinishedAt:       start.Add(time.Second),
		PushFailed:       2,
		Conflicts:        3,
		PendingConflicts: 4,
	})
	m.ObserveCycle(&qsync.Result{Status: qsync.StatusSkipped, PendingConflicts: 4})

	fams := gather(t, reg)
	cycles := fams["quotesync_sync_cycles_total"]
	if cycles == nil || len(cycles.GetMetric()) != 2 {
		t.Fatalf("cycles = %v", cycles)
	}
	if got := fams["quotesync_push_failures_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("push failures = %v", got)
	}
	if got := fams["quotesync_conflicts_detected_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("conflicts = %v", got)
	}
	if got := fams["quotesync_pending_conflicts"].GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Errorf("pending = %v", got)
	}
	if got := fams["quotesync_last_sync_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue(); got != 1700000001 {
		t.Errorf("last sync = %v", got)
	}
	if got := fams["quotesync_sync_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("duration samples = %v, skipped cycles must not be observed", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, _ := New(reg)
	m.SetPending(2)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "quotesync_pending_conflicts 2") {
		t.Fatalf("metrics body missing gauge:\n%s", body)
	}
}

func TestNotifier_TracksConflictCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, _ := New(reg)
	n := m.Notifier()
	n.NotifyStatus("ignored")
	n.NotifyConflictCount(4)
	n.NotifyConflictCount(1)

	if got := testutil.ToFloat64(m.pendingConflicts); got != 1 {
		t.Fatalf("pending = %v, want 1", got)
	}
}
