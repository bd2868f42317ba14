package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lherron/quotesync/internal/domain"
)

// CanonicalJSON produces a deterministic encoding: records sorted by id, keys
// in a fixed order, no insignificant whitespace, HTML not escaped.
func CanonicalJSON(records []domain.Record) ([]byte, error) {
	sorted := make([]domain.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LocalID < sorted[j].LocalID })

	list := make([]orderedMap, 0, len(sorted))
	for i := range sorted {
		list = append(list, buildOrderedRecord(&sorted[i]))
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(list); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// PrettyJSON encodes records in collection order with two-space indentation.
func PrettyJSON(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	out := make([]orderedMap, 0, len(records))
	for i := range records {
		out = append(out, buildOrderedRecord(&records[i]))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return append(data, '\n'), nil
}

// ComputeSnapshotRev computes the sha256 hash of canonical JSON bytes.
// Returns "sha256:<hex>" format.
func ComputeSnapshotRev(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

type orderedMap []keyValue

type keyValue struct {
	Key   string
	Value interface{}
}

func (om orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val bytes.Buffer
		enc := json.NewEncoder(&val)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(kv.Value); err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimSuffix(val.Bytes(), []byte("\n")))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// buildOrderedRecord fixes key order: id, serverId, text, category,
// updatedAt, source.
func buildOrderedRecord(r *domain.Record) orderedMap {
	m := orderedMap{{"id", r.LocalID}}
	if r.RemoteID != nil {
		m = append(m, keyValue{"serverId", *r.RemoteID})
	}
	return append(m,
		keyValue{"text", r.Text},
		keyValue{"category", r.Category},
		keyValue{"updatedAt", FormatTimestamp(r.UpdatedAt)},
		keyValue{"source", string(r.Origin)},
	)
}
