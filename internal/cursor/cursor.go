// Package cursor implements opaque keyset cursors for list commands.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lherron/quotesync/internal/domain"
)

// PositionField is the sort field used when paging the in-memory record list.
const PositionField = "position"

// Cursor marks the last row of a page: its sort key values and its id.
type Cursor struct {
	SortFields []string      `json:"sort_fields"`
	LastValues []interface{} `json:"last_values"`
	LastID     string        `json:"last_id"`
}

// NewCursor creates a cursor from the last row of a page
func NewCursor(sortFields []string, lastValues []interface{}, lastID string) (*Cursor, error) {
	if len(sortFields) != len(lastValues) {
		return nil, fmt.Errorf("sort fields and last values length mismatch")
	}
	if lastID == "" {
		return nil, fmt.Errorf("last ID required")
	}
	return &Cursor{SortFields: sortFields, LastValues: lastValues, LastID: lastID}, nil
}

// Encode serializes the cursor to an opaque base64 string
func (c *Cursor) Encode() (string, error) {
	if len(c.SortFields) != len(c.LastValues) {
		return "", fmt.Errorf("sort fields and last values length mismatch")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode parses a string produced by Encode
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty cursor string")
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}

	switch {
	case len(c.SortFields) == 0:
		return nil, fmt.Errorf("cursor missing sort fields")
	case len(c.SortFields) != len(c.LastValues):
		return nil, fmt.Errorf("cursor sort fields and values length mismatch")
	case c.LastID == "":
		return nil, fmt.Errorf("cursor missing last ID")
	}
	return &c, nil
}

// BuildWhereClause returns a keyset predicate for rows after the cursor.
// For ORDER BY a DESC, b DESC, id DESC it yields
//
//	((a < ?) OR (a = ? AND b < ?) OR (a = ? AND b = ? AND id < ?))
//
// The id tie-breaker follows the direction of the last sort field.
func (c *Cursor) BuildWhereClause(descending []bool) (string, []interface{}, error) {
	if len(c.SortFields) != len(descending) {
		return "", nil, fmt.Errorf("sort fields and descending flags length mismatch")
	}
	if len(descending) == 0 {
		return "", nil, fmt.Errorf("at least one sort field required")
	}

	op := func(desc bool) string {
		if desc {
			return "<"
		}
		return ">"
	}

	var params []interface{}
	var ors []string
	level := func(n int, last string, lastOp string, lastValue interface{}) {
		parts := make([]string, 0, n+1)
		for j := 0; j < n; j++ {
			parts = append(parts, c.SortFields[j]+" = ?")
			params = append(params, c.LastValues[j])
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", last, lastOp))
		params = append(params, lastValue)
		ors = append(ors, "("+strings.Join(parts, " AND ")+")")
	}

	for i := range c.SortFields {
		level(i, c.SortFields[i], op(descending[i]), c.LastValues[i])
	}
	level(len(c.SortFields), "id", op(descending[len(descending)-1]), c.LastID)

	return "(" + strings.Join(ors, " OR ") + ")", params, nil
}

// PageRecords returns up to limit records following after, plus a cursor for
// the next page when more remain. Records are never deleted, so the last id
// is found again; the stored position covers an id that has disappeared.
func PageRecords(records []domain.Record, after *Cursor, limit int) ([]domain.Record, *Cursor, error) {
	start := 0
	if after != nil {
		start = -1
		for i, r := range records {
			if r.LocalID == after.LastID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			pos, ok := positionOf(after)
			if !ok {
				return nil, nil, fmt.Errorf("cursor does not match this list")
			}
			start = pos + 1
		}
	}
	if start > len(records) {
		start = len(records)
	}

	end := len(records)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := records[start:end]

	if end >= len(records) || len(page) == 0 {
		return page, nil, nil
	}
	next, err := NewCursor([]string{PositionField}, []interface{}{end - 1}, records[end-1].LocalID)
	if err != nil {
		return nil, nil, err
	}
	return page, next, nil
}

func positionOf(c *Cursor) (int, bool) {
	if len(c.SortFields) != 1 || c.SortFields[0] != PositionField {
		return 0, false
	}
	switch v := c.LastValues[0].(type) {
	case float64:
		return int(v), v >= 0
	case int:
		return v, v >= 0
	}
	return 0, false
}
