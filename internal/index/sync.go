package index

import (
	"fmt"

	"github.com/starford/coldcases/internal/checksum"
	"github.com/starford/coldcases/internal/models"
)

// SyncStats counts the changes applied by Sync.
type SyncStats struct {
	Indexed int
	Removed int
}

// Sync brings the index in line with cases:
//   - new or changed cases are upserted
//   - cases no longer present are deleted
func (db *DB) Sync(cases []models.Case) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	live := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		live[c.ID] = struct{}{}
		cs, err := checksum.Of(c)
		if err != nil {
			return stats, fmt.Errorf("index: checksum %s: %w", c.ID, err)
		}
		if checksums[c.ID] == cs {
			continue
		}
		if err := db.UpsertCase(CaseRow{
			ID:       c.ID,
			Name:     c.Name,
			Location: c.Location,
			Status:   c.Status,
			Year:     c.Date.Year,
			Checksum: cs,
		}, c.Narrative()); err != nil {
			return stats, err
		}
		stats.Indexed++
	}

	for id := range checksums {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteCase(id); err != nil {
			return stats, err
		}
		stats.Removed++
	}
	return stats, nil
}
