// Package snapshot exports and imports the record collection as files.
//
// The default export is the same pretty JSON array earlier clients wrote.
// The canonical form sorts records by id and drops insignificant whitespace so
// identical collections hash to the same revision.
package snapshot

import (
	"time"
)

// DefaultOutputPath is the default export file name.
const DefaultOutputPath = "quotes.json"

// ExportOptions controls Export.
type ExportOptions struct {
	OutputPath string
	Canonical  bool
	// Category limits the export to one category; empty or "all" exports everything.
	Category string
}

// ExportResult describes a finished export.
type ExportResult struct {
	OutputPath  string `json:"output"`
	SnapshotRev string `json:"snapshot_rev"`
	RecordCount int    `json:"records"`
	Bytes       int    `json:"bytes"`
}

// ImportOptions controls Import.
type ImportOptions struct {
	InputPath string
	// Format is "json" or "yaml"; empty detects from the extension, then the content.
	Format string
	DryRun bool
}

// ImportResult describes a finished or simulated import.
type ImportResult struct {
	InputPath string `json:"input"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Total     int    `json:"total"`
	DryRun    bool   `json:"dry_run"`
}

// FormatTimestamp formats t the way earlier clients stored timestamps:
// UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseTimestamp parses an RFC 3339 timestamp with optional fraction.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
