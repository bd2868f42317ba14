package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lherron/quotesync/internal/cli/appctx"
	"github.com/lherron/quotesync/internal/config"
	"github.com/lherron/quotesync/internal/cursor"
	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/events"
	"github.com/lherron/quotesync/internal/metrics"
	"github.com/lherron/quotesync/internal/selectors"
	qsync "github.com/lherron/quotesync/internal/sync"
	"github.com/lherron/quotesync/internal/sync/scheduler"
	"github.com/lherron/quotesync/internal/webhooks"
)

// DaemonOptions configures the quotesyncd daemon. Empty fields fall back to
// the loaded config.
type DaemonOptions struct {
	Addr          string
	Unix          string
	Token         string
	DBPath        string
	RemoteURL     string
	Interval      time.Duration
	NoInitialSync bool
	LogFile       string
}

// ServeDaemon runs the scheduler and HTTP API until ctx is cancelled.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyDaemonOptions(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	d, err := newDaemon(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer d.close()

	httpServer := &http.Server{
		Handler:      d.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorLog:     d.logger,
	}

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
	} else {
		listener, err = net.Listen("tcp", cfg.DaemonAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	d.logger.Printf("listening on %s", listener.Addr())

	d.scheduler.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	d.logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Printf("http shutdown: %v", err)
	}
	return nil
}

func applyDaemonOptions(cfg *config.Config, opts DaemonOptions) {
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.RemoteURL != "" {
		cfg.RemoteURL = opts.RemoteURL
	}
	if opts.Addr != "" {
		cfg.DaemonAddr = opts.Addr
	}
	if opts.Token != "" {
		cfg.DaemonToken = opts.Token
	}
	if opts.Interval > 0 {
		cfg.SyncInterval = config.Duration(opts.Interval)
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
}

// daemon owns the long-lived components behind quotesyncd.
type daemon struct {
	// ctx outlives requests; background syncs started over HTTP run under it.
	ctx       context.Context
	app       *appctx.App
	engine    *qsync.Engine
	resolver  *qsync.Resolver
	scheduler *scheduler.Scheduler
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	hooks     *webhooks.Dispatcher
	token     string
	logger    *log.Logger
}

func newDaemon(ctx context.Context, cfg *config.Config, opts DaemonOptions) (*daemon, error) {
	app, err := appctx.Build(cfg, appctx.WithRemote())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	m.SetPending(app.Store.Conflicts.Len())

	hooks := webhooks.New(cfg.WebhookURLs, webhooks.Options{
		SkipSkipped: true,
		Logger:      app.Logs.For("webhooks"),
	})
	app.Observer = qsync.MultiObserver{m, hooks}

	notifier := &logNotifier{logger: app.Logs.For("view")}
	engine := app.Engine(notifier)

	d := &daemon{
		ctx:      ctx,
		app:      app,
		engine:   engine,
		resolver: app.Resolver(qsync.MultiNotifier{notifier, m.Notifier()}),
		scheduler: scheduler.New(engine, scheduler.Options{
			Interval:    cfg.Interval(),
			InitialSync: !opts.NoInitialSync,
			Logger:      app.Logs.For("scheduler"),
		}),
		registry: registry,
		metrics:  m,
		hooks:    hooks,
		token:    cfg.DaemonToken,
		logger:   app.Logs.For("daemon"),
	}
	return d, nil
}

func (d *daemon) close() {
	d.scheduler.Stop()
	d.hooks.Wait()
	d.app.Close()
}

// logNotifier reports cycle outcomes to the daemon log.
type logNotifier struct {
	logger *log.Logger
}

func (n *logNotifier) RenderRecords(records []domain.Record) {
	n.logger.Printf("view: %d quotes", len(records))
}

func (n *logNotifier) RenderConflicts(conflicts []domain.Conflict) {
	n.logger.Printf("view: %d pending conflicts", len(conflicts))
}

func (n *logNotifier) NotifyStatus(text string) {
	n.logger.Print(text)
}

func (n *logNotifier) NotifyConflictCount(count int) {
	if count > 0 {
		n.logger.Printf("%s need review", plural(count, "conflict", "conflicts"))
	}
}

func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	d.registerRoutes(mux)
	return mux
}

func (d *daemon) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/health", d.withAuth(d.handleHealth))
	mux.HandleFunc("/v1/status", d.withAuth(d.handleStatus))

	mux.HandleFunc("/v1/quotes/list", d.withAuth(d.handleQuotesList))
	mux.HandleFunc("/v1/quotes/create", d.withAuth(d.handleQuotesCreate))

	mux.HandleFunc("/v1/sync", d.withAuth(d.handleSync))
	mux.HandleFunc("/v1/history", d.withAuth(d.handleHistory))

	mux.HandleFunc("/v1/conflicts/list", d.withAuth(d.handleConflictsList))
	mux.HandleFunc("/v1/conflicts/resolve", d.withAuth(d.handleConflictsResolve))

	metricsHandler := metrics.Handler(d.registry)
	mux.HandleFunc("/metrics", d.withAuth(metricsHandler.ServeHTTP))
}

func (d *daemon) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.token != "" {
			token := r.Header.Get("Authorization")
			if strings.HasPrefix(token, "Bearer ") {
				token = strings.TrimPrefix(token, "Bearer ")
			}
			if token == "" {
				token = r.Header.Get("X-Quotesync-Token")
			}
			if token != d.token {
				d.writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
				return
			}
		}

		next(w, r)
	}
}

func (d *daemon) decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return decoder.Decode(dst)
}

func (d *daemon) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (d *daemon) writeError(w http.ResponseWriter, status int, err error) {
	d.writeJSON(w, status, map[string]interface{}{
		"message": err.Error(),
	})
}

func (d *daemon) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		d.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return false
	}
	return true
}

func (d *daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodGet) {
		return
	}

	d.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodGet) {
		return
	}

	report, err := buildStatus(d.app.Store, remoteEndpoint(d.app))
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}
	report.Syncing = d.engine.Running()
	d.writeJSON(w, http.StatusOK, report)
}

func (d *daemon) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	category := q.Get("category")
	if category == "" {
		selected, err := d.app.Store.Meta.SelectedCategory()
		if err != nil {
			d.writeError(w, http.StatusInternalServerError, err)
			return
		}
		category = selected
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			d.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	var after *cursor.Cursor
	if v := q.Get("cursor"); v != "" {
		c, err := cursor.Decode(v)
		if err != nil {
			d.writeError(w, http.StatusBadRequest, err)
			return
		}
		after = c
	}

	page, next, err := cursor.PageRecords(d.app.Store.Records.Filter(category), after, limit)
	if err != nil {
		d.writeError(w, http.StatusBadRequest, err)
		return
	}
	if page == nil {
		page = []domain.Record{}
	}

	resp := map[string]interface{}{"quotes": page}
	if next != nil {
		encoded, err := next.Encode()
		if err != nil {
			d.writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp["next_cursor"] = encoded
	}
	d.writeJSON(w, http.StatusOK, resp)
}

type quotesCreateRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func (d *daemon) handleQuotesCreate(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodPost) {
		return
	}

	var req quotesCreateRequest
	if err := d.decodeJSON(r, &req); err != nil {
		d.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := d.app.Store.Records.Add(req.Text, req.Category)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			d.writeError(w, http.StatusBadRequest, err)
			return
		}
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}
	d.writeJSON(w, http.StatusCreated, rec)
}

type syncRequest struct {
	Wait bool `json:"wait,omitempty"`
}

func (d *daemon) handleSync(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodPost) {
		return
	}

	var req syncRequest
	if err := d.decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		d.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if !req.Wait {
		if !d.scheduler.TriggerNow(d.ctx) {
			if d.engine.Running() {
				d.writeError(w, http.StatusConflict, qsync.ErrCycleInProgress)
			} else {
				d.writeError(w, http.StatusServiceUnavailable, errors.New("scheduler is not running"))
			}
			return
		}
		d.writeJSON(w, http.StatusAccepted, map[string]interface{}{"started": true})
		return
	}

	res, err := d.scheduler.SyncNow(r.Context())
	switch {
	case errors.Is(err, qsync.ErrCycleInProgress):
		d.writeJSON(w, http.StatusConflict, res)
	case err != nil && res != nil:
		d.writeJSON(w, http.StatusBadGateway, res)
	case err != nil:
		d.writeError(w, http.StatusInternalServerError, err)
	default:
		d.writeJSON(w, http.StatusOK, res)
	}
}

func (d *daemon) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodGet) {
		return
	}

	opts := events.ListOptions{Limit: 20, Cursor: r.URL.Query().Get("cursor")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			d.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}

	list, next, err := d.app.History.List(r.Context(), opts)
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []domain.SyncEvent{}
	}
	resp := map[string]interface{}{"events": list}
	if next != "" {
		resp["next_cursor"] = next
	}
	d.writeJSON(w, http.StatusOK, resp)
}

func (d *daemon) handleConflictsList(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodGet) {
		return
	}

	list := d.app.Store.Conflicts.List()
	if list == nil {
		list = []domain.Conflict{}
	}
	d.writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": list})
}

type conflictsResolveRequest struct {
	// ID accepts any conflict selector: a full id, a unique prefix, r:<remote id> or #<position>.
	ID   string `json:"id"`
	Keep string `json:"keep"`
	All  bool   `json:"all,omitempty"`
}

func (d *daemon) handleConflictsResolve(w http.ResponseWriter, r *http.Request) {
	if !d.allow(w, r, http.MethodPost) {
		return
	}

	var req conflictsResolveRequest
	if err := d.decodeJSON(r, &req); err != nil {
		d.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	choice, err := domain.ParseChoice(req.Keep)
	if err != nil {
		d.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.All {
		n, err := d.resolver.ResolveAll(choice)
		if err != nil {
			d.writeError(w, http.StatusInternalServerError, err)
			return
		}
		d.writeJSON(w, http.StatusOK, map[string]interface{}{
			"resolved":  n,
			"remaining": d.app.Store.Conflicts.Len(),
		})
		return
	}

	c, err := selectors.ResolveConflict(d.app.Store.Conflicts.List(), req.ID)
	if err != nil {
		d.writeResolveError(w, err)
		return
	}
	if err := d.resolver.ResolveStrict(c.ID, choice); err != nil {
		d.writeResolveError(w, err)
		return
	}
	d.writeJSON(w, http.StatusOK, map[string]interface{}{
		"resolved":  1,
		"id":        c.ID,
		"remaining": d.app.Store.Conflicts.Len(),
	})
}

func (d *daemon) writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		d.writeError(w, http.StatusNotFound, err)
		return
	}
	d.writeError(w, http.StatusBadRequest, err)
}
