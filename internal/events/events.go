// Package events records the history of sync cycles.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lherron/quotesync/internal/cursor"
	"github.com/lherron/quotesync/internal/domain"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Writer handles reads and writes of the sync_events table
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new history writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// Append stores one finished cycle and returns its row id.
func (w *Writer) Append(ctx context.Context, ev domain.SyncEvent) (int64, error) {
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO sync_events (trigger, status, pushed, push_failed, pulled, inserted,
		                         conflicts, pending_conflicts, message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.Trigger, ev.Status, ev.Pushed, ev.PushFailed, ev.Pulled, ev.Inserted,
		ev.Conflicts, ev.PendingConflicts, ev.Message,
		formatTime(ev.StartedAt), formatTime(ev.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to write sync event: %w", err)
	}
	return res.LastInsertId()
}

// ListOptions controls List.
type ListOptions struct {
	Limit  int
	Cursor string
}

// List returns events newest first. The returned cursor is empty on the last
// page.
func (w *Writer) List(ctx context.Context, opts ListOptions) ([]domain.SyncEvent, string, error) {
	query := `
		SELECT id, trigger, status, pushed, push_failed, pulled, inserted,
		       conflicts, pending_conflicts, message, started_at, finished_at
		FROM sync_events`
	var args []interface{}

	if opts.Cursor != "" {
		c, err := cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, "", err
		}
		where, params, err := c.BuildWhereClause([]bool{true})
		if err != nil {
			return nil, "", err
		}
		query += " WHERE " + where
		args = append(args, params...)
	}

	query += " ORDER BY started_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit+1)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query sync events: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncEvent
	for rows.Next() {
		var ev domain.SyncEvent
		var started, finished string
		if err := rows.Scan(&ev.ID, &ev.Trigger, &ev.Status, &ev.Pushed, &ev.PushFailed, &ev.Pulled,
			&ev.Inserted, &ev.Conflicts, &ev.PendingConflicts, &ev.Message, &started, &finished); err != nil {
			return nil, "", fmt.Errorf("failed to scan sync event: %w", err)
		}
		ev.StartedAt = parseTime(started)
		ev.FinishedAt = parseTime(finished)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if opts.Limit <= 0 || len(out) <= opts.Limit {
		return out, "", nil
	}

	out = out[:opts.Limit]
	last := out[len(out)-1]
	next, err := cursor.NewCursor([]string{"started_at"}, []interface{}{formatTime(last.StartedAt)}, strconv.FormatInt(last.ID, 10))
	if err != nil {
		return nil, "", err
	}
	encoded, err := next.Encode()
	if err != nil {
		return nil, "", err
	}
	return out, encoded, nil
}

// Prune keeps the newest keep events and deletes the rest.
func (w *Writer) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := w.db.ExecContext(ctx, `
		DELETE FROM sync_events
		WHERE id NOT IN (SELECT id FROM sync_events ORDER BY started_at DESC, id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync events: %w", err)
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
