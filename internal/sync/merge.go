package sync

import (
	"time"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/id"
)

// MergeOutcome is the result of folding a snapshot into a record list.
type MergeOutcome struct {
	Records   []domain.Record
	Conflicts []domain.Conflict

	Inserted   int
	Confirmed  int
	Conflicted int
	// Duplicates counts snapshot items that repeated an earlier remote id.
	Duplicates int
}

// Merge folds snapshot into records with the remote side winning. It does
// not modify its inputs.
//
// Records absent from the snapshot are kept as they are: a snapshot is a
// bounded page, so absence says nothing about deletion. When a matched
// record's content differs, the prior local content is captured in a
// Conflict before being overwritten.
func Merge(records []domain.Record, snapshot []domain.RemoteRecord, now time.Time, newID func() string) MergeOutcome {
	if newID == nil {
		newID = id.NewLocalID
	}

	out := MergeOutcome{Records: make([]domain.Record, len(records))}
	byRemote := make(map[int64]int, len(records))
	locals := make(map[string]bool, len(records))
	for i, r := range records {
		out.Records[i] = r.Clone()
		locals[r.LocalID] = true
		if r.RemoteID != nil {
			if _, dup := byRemote[*r.RemoteID]; !dup {
				byRemote[*r.RemoteID] = i
			}
		}
	}

	seen := make(map[int64]bool, len(snapshot))
	for _, rr := range snapshot {
		if seen[rr.RemoteID] {
			out.Duplicates++
			continue
		}
		seen[rr.RemoteID] = true

		idx, ok := byRemote[rr.RemoteID]
		if !ok {
			localID := id.FormatRemoteLocalID(rr.RemoteID)
			if locals[localID] {
				localID = newID()
			}
			locals[localID] = true
			byRemote[rr.RemoteID] = len(out.Records)
			out.Records = append(out.Records, rr.ToRecord(localID))
			out.Inserted++
			continue
		}

		local := &out.Records[idx]
		incoming := rr.ToRecord(local.LocalID)

		if local.SameContent(incoming) {
			local.UpdatedAt = rr.FetchedAt
			local.Origin = domain.OriginRemote
			out.Confirmed++
			continue
		}

		out.Conflicts = append(out.Conflicts, domain.Conflict{
			ID:             newID(),
			RemoteID:       rr.RemoteID,
			LocalBefore:    local.Clone(),
			RemoteIncoming: incoming,
			Resolution:     domain.ResolutionServer,
			DetectedAt:     now,
		})
		local.Text = incoming.Text
		local.Category = incoming.Category
		local.UpdatedAt = incoming.UpdatedAt
		local.Origin = domain.OriginRemote
		out.Conflicted++
	}

	return out
}
