package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/starford/coldcases/internal/parser"
)

// Mem is an in-memory CaseSource. Cases are discovered in insertion order.
type Mem struct {
	mu      sync.RWMutex
	order   []string
	meta    map[string]*parser.Metadata
	content map[string]string
}

// NewMem returns an empty in-memory source.
func NewMem() *Mem {
	return &Mem{
		meta:    make(map[string]*parser.Metadata),
		content: make(map[string]string),
	}
}

// Put adds or replaces a case. An empty content means no narrative.
func (m *Mem) Put(folder string, meta parser.Metadata, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meta[folder]; !ok {
		m.order = append(m.order, folder)
	}
	m.meta[folder] = &meta
	if content != "" {
		m.content[folder] = content
	} else {
		delete(m.content, folder)
	}
}

// ListCaseIDs implements CaseSource.
func (m *Mem) ListCaseIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

// ReadMeta implements CaseSource.
func (m *Mem) ReadMeta(ctx context.Context, id string) (*parser.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.meta[id]
	if !ok {
		return nil, fmt.Errorf("storage: no metadata in %s: %w", id, os.ErrNotExist)
	}
	cp := *meta
	return &cp, nil
}

// ReadContent implements CaseSource.
func (m *Mem) ReadContent(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.content[id]
	return body, ok, nil
}
