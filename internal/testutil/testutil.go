// Package testutil provides shared test helpers for building case trees and
// indexes.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/coldcases/internal/index"
	"github.com/starford/coldcases/internal/storage"
)

// TestDB opens an in-memory index that is closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + filepath.Base(t.TempDir())
	db, err := index.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCatalog creates a temporary case tree with a storage.FS over it.
func TestCatalog(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteCase writes meta.json, and index.md when narrative is non-empty, into
// dir/folder.
func WriteCase(t *testing.T, dir, folder, metaJSON, narrative string) {
	t.Helper()
	WriteFile(t, filepath.Join(dir, folder, "meta.json"), metaJSON)
	if narrative != "" {
		WriteFile(t, filepath.Join(dir, folder, "index.md"), narrative)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// SeedCases writes two valid cases into dir: "jane-doe" (1998, with a
// narrative) and "john-smith" (1974, description only).
func SeedCases(t *testing.T, dir string) {
	t.Helper()
	WriteCase(t, dir, "jane-doe", `{
  "id": "jane-doe",
  "name": "Jane Doe",
  "location": "Kelowna, BC",
  "status": "Unsolved",
  "description": "Last seen leaving work.",
  "photo": "jane.jpg",
  "date": {"year": 1998, "month": 5, "precision": "month"},
  "references": ["https://example.org/jane"]
}`, "---\ntitle: Jane Doe\n---\n# Jane Doe\n\nShe was last seen near the lakeshore orchard.\n")
	WriteCase(t, dir, "john-smith", `{
  "id": "john-smith",
  "name": "John Smith",
  "location": "Vernon, BC",
  "status": "Cold Case",
  "description": "Found near the highway.",
  "date": {"year": 1974, "precision": "year"},
  "references": []
}`, "")
}
