package index

import (
	"fmt"
	"time"
)

// CaseRow represents a row in the cases table.
type CaseRow struct {
	ID        string
	Name      string
	Location  string
	Status    string
	Year      int
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// UpsertCase inserts or replaces a case and its FTS entry within a
// transaction.
func (db *DB) UpsertCase(r CaseRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO cases (id, name, location, status, year, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			location   = excluded.location,
			status     = excluded.status,
			year       = excluded.year,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.ID, r.Name, r.Location, r.Status, r.Year, r.Checksum, body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert case: %w", err)
	}

	if err := ftsUpsert(tx, r.ID, r.Name, r.Location, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteCase removes a case and its FTS entry.
func (db *DB) DeleteCase(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM cases WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete case: %w", err)
	}
	return tx.Commit()
}

// AllChecksums returns id → checksum for every indexed case.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM cases`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed cases.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM cases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
