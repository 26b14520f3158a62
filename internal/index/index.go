package index

import "github.com/starford/coldcases/internal/models"

// CaseIndex defines the narrative index operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type CaseIndex interface {
	UpsertCase(r CaseRow, body string) error
	DeleteCase(id string) error
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Sync(cases []models.Case) (SyncStats, error)
	Close() error
}

// Verify *DB satisfies CaseIndex at compile time.
var _ CaseIndex = (*DB)(nil)
