package snapshot

import (
	"fmt"
	"os"
	"time"

	"github.com/lherron/quotesync/internal/parse"
	"github.com/lherron/quotesync/internal/store"
)

// Import reads a JSON or YAML list of records and merges it into the store
// by local id: matching ids are updated, the rest appended. Entries are
// normalized like persisted data on load.
func Import(st *store.Store, opts ImportOptions, now time.Time) (*ImportResult, error) {
	if opts.InputPath == "" {
		opts.InputPath = DefaultOutputPath
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return ImportBytes(st, data, opts, now)
}

// ImportBytes is Import for data already in memory.
func ImportBytes(st *store.Store, data []byte, opts ImportOptions, now time.Time) (*ImportResult, error) {
	format := opts.Format
	if format == "" {
		format = string(parse.FormatFromPath(opts.InputPath))
	}

	stored, err := parse.Records(data, format)
	if err != nil {
		return nil, fmt.Errorf("invalid import file: %w", err)
	}
	incoming := store.NormalizeStored(stored, now)

	result := &ImportResult{InputPath: opts.InputPath, DryRun: opts.DryRun}
	if opts.DryRun {
		for _, r := range incoming {
			if _, ok := st.Records.FindByLocalID(r.LocalID); ok {
				result.Updated++
			} else {
				result.Added++
			}
		}
		result.Total = st.Records.Len() + result.Added
		return result, nil
	}

	added, updated, err := st.Records.Merge(incoming)
	if err != nil {
		return nil, fmt.Errorf("failed to import records: %w", err)
	}
	result.Added = added
	result.Updated = updated
	result.Total = st.Records.Len()
	return result, nil
}
