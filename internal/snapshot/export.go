package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lherron/quotesync/internal/store"
)

// Render encodes the store's records without writing them anywhere.
func Render(st *store.Store, opts ExportOptions) ([]byte, *ExportResult, error) {
	records := st.Records.Filter(opts.Category)

	canonical, err := CanonicalJSON(records)
	if err != nil {
		return nil, nil, err
	}
	data := canonical
	if !opts.Canonical {
		if data, err = PrettyJSON(records); err != nil {
			return nil, nil, err
		}
	}

	return data, &ExportResult{
		OutputPath:  opts.OutputPath,
		SnapshotRev: ComputeSnapshotRev(canonical),
		RecordCount: len(records),
		Bytes:       len(data),
	}, nil
}

// Export writes the store's records to opts.OutputPath.
func Export(st *store.Store, opts ExportOptions) (*ExportResult, error) {
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}

	data, result, err := Render(st, opts)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Write to a temp file and rename so a failed export never truncates the target.
	tmp := opts.OutputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, opts.OutputPath); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	return result, nil
}
