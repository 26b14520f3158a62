package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/parser"
)

// File names looked up inside each case folder.
const (
	NarrativeFile = "index.md"
)

// MetaFiles lists the accepted metadata document names in lookup order.
var MetaFiles = []string{"meta.json", "meta.yaml", "meta.yml"}

// DefaultExclude marks template and sample folders that are never loaded.
var DefaultExclude = []string{"templates", "example"}

// FS implements CaseSource backed by the local file system.
type FS struct {
	root    string // absolute path to the case tree
	photos  string // absolute path to the photo directory
	exclude []string
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithPhotos sets the photo directory. Relative paths resolve against the
// working directory.
func WithPhotos(dir string) FSOption {
	return func(f *FS) {
		if abs, err := filepath.Abs(dir); err == nil {
			f.photos = abs
		}
	}
}

// WithExclude replaces the folder name markers that exclude a folder from
// discovery. Matching is a case-insensitive substring test.
func WithExclude(markers ...string) FSOption {
	return func(f *FS) {
		f.exclude = markers
	}
}

// NewFS creates a new FS rooted at the given case tree.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, photos: filepath.Join(abs, "photos"), exclude: DefaultExclude}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute path of the case tree.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against base and rejects any result
// that escapes it (directory traversal).
func safePath(base, rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(base, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// Excluded reports whether a folder name carries an exclude marker.
func (f *FS) Excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range f.exclude {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// ListCaseIDs returns every case folder directly under the root, in name
// order, skipping hidden and excluded folders.
func (f *FS) ListCaseIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || f.Excluded(name) {
			continue
		}
		if abs, _ := filepath.Abs(filepath.Join(f.root, name)); abs == f.photos {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// ReadMeta reads and decodes the first metadata document found in the case
// folder.
func (f *FS) ReadMeta(ctx context.Context, id string) (*parser.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range MetaFiles {
		abs, err := safePath(f.root, filepath.Join(id, name))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(abs)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", filepath.Join(id, name), err)
		}
		return parser.ParseMeta(name, data)
	}
	return nil, fmt.Errorf("storage: no metadata in %s: %w", id, os.ErrNotExist)
}

// ReadContent returns the narrative body of a case with any frontmatter
// removed.
func (f *FS) ReadContent(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	abs, err := safePath(f.root, filepath.Join(id, NarrativeFile))
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %s: %w", filepath.Join(id, NarrativeFile), err)
	}
	return parser.ParseNarrative(data).Body, true, nil
}

// PhotoPath resolves a photo file name against the photo directory. Only
// plain file names are accepted. apperr.ErrNotFound is returned when the
// file does not exist.
func (f *FS) PhotoPath(name string) (string, error) {
	if name == "" || filepath.Base(filepath.Clean(name)) != name || strings.Contains(name, "..") {
		return "", fmt.Errorf("storage: invalid photo name: %q", name)
	}
	abs, err := safePath(f.photos, name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", apperr.ErrNotFound
	}
	return abs, nil
}
