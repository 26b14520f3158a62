// Package catalog loads case records and holds the in-memory catalog with
// its derived search view.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/coldcases/internal/models"
	"github.com/starford/coldcases/internal/storage"
)

const defaultConcurrency = 8

// Loader reads every case from a source.
type Loader struct {
	src         storage.CaseSource
	logger      *slog.Logger
	concurrency int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of cases read at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLoaderLogger sets the logger used for per-record diagnostics.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader reading from src.
func NewLoader(src storage.CaseSource, opts ...LoaderOption) *Loader {
	l := &Loader{src: src, logger: slog.Default(), concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Report is the outcome of a load, including the folders that were dropped.
type Report struct {
	Cases    []models.Case
	Rejected map[string]error
}

// Load returns the accepted cases in discovery order. Records that fail to
// read, parse or pass Accept are logged and skipped. A *LoadFailure is
// returned when discovery fails or ctx ends.
func (l *Loader) Load(ctx context.Context) ([]models.Case, error) {
	rep, err := l.LoadReport(ctx)
	if err != nil {
		return nil, err
	}
	return rep.Cases, nil
}

// LoadReport behaves like Load and also returns the rejected folders.
func (l *Loader) LoadReport(ctx context.Context) (*Report, error) {
	ids, err := l.src.ListCaseIDs(ctx)
	if err != nil {
		return nil, &LoadFailure{Err: err}
	}

	results := make([]*models.Case, len(ids))
	errs := make([]error, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			c, err := l.loadOne(gCtx, id)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
				l.logger.Warn("loader: case skipped",
					slog.String("folder", id),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &LoadFailure{Err: err}
	}

	rep := &Report{
		Cases:    make([]models.Case, 0, len(ids)),
		Rejected: make(map[string]error),
	}
	seen := make(map[string]string, len(ids))
	for i, c := range results {
		switch {
		case c == nil:
			if errs[i] != nil {
				rep.Rejected[ids[i]] = errs[i]
			}
		case seen[c.ID] != "":
			dup := &Rejection{Folder: ids[i], Reason: fmt.Sprintf("duplicate id %q already loaded from %s", c.ID, seen[c.ID])}
			rep.Rejected[ids[i]] = dup
			l.logger.Warn("loader: case skipped",
				slog.String("folder", ids[i]),
				slog.String("error", dup.Error()))
		default:
			seen[c.ID] = ids[i]
			rep.Cases = append(rep.Cases, *c)
		}
	}
	l.logger.Debug("loader: catalog loaded",
		slog.Int("accepted", len(rep.Cases)),
		slog.Int("rejected", len(rep.Rejected)))
	return rep, nil
}

func (l *Loader) loadOne(ctx context.Context, folder string) (*models.Case, error) {
	meta, err := l.src.ReadMeta(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	body, _, err := l.src.ReadContent(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("read narrative: %w", err)
	}
	c := meta.Case(folder, body)
	if err := Accept(folder, c); err != nil {
		return nil, err
	}
	return &c, nil
}
