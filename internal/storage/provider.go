// Package storage defines where case records are read from.
package storage

import (
	"context"

	"github.com/starford/coldcases/internal/parser"
)

// CaseSource discovers case folders and reads their documents.
type CaseSource interface {
	// ListCaseIDs returns the folder name of every discoverable case.
	ListCaseIDs(ctx context.Context) ([]string, error)
	// ReadMeta returns the decoded metadata document of a case.
	ReadMeta(ctx context.Context, id string) (*parser.Metadata, error)
	// ReadContent returns the narrative body of a case. ok is false when
	// the case has no narrative document.
	ReadContent(ctx context.Context, id string) (body string, ok bool, err error)
}

var (
	_ CaseSource = (*FS)(nil)
	_ CaseSource = (*Mem)(nil)
)
