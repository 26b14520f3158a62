// Package caseservice is the use-case layer shared by the HTTP API and the
// MCP server. It wraps the view model and keeps the narrative index in step
// with it.
package caseservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/index"
	"github.com/starford/coldcases/internal/models"
)

const defaultSearchLimit = 20

// CaseDetail is the full representation of a case.
type CaseDetail struct {
	models.Case
	DateLabel string `json:"date_label"`
	Narrative string `json:"narrative"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// CaseListItem is a lightweight item in a list response.
type CaseListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Status    string `json:"status"`
	Year      int    `json:"year"`
	DateLabel string `json:"date_label"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// View is the view model's filtered view together with its state.
type View struct {
	Cases []CaseListItem `json:"cases"`
	State catalog.State  `json:"state"`
}

// SaveRequest is the admin form submission. ReferencesText holds one URL
// per line and is appended to References.
type SaveRequest struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Location       string      `json:"location"`
	Status         string      `json:"status"`
	Description    string      `json:"description"`
	Content        string      `json:"content,omitempty"`
	Photo          string      `json:"photo,omitempty"`
	Date           models.Date `json:"date"`
	References     []string    `json:"references,omitempty"`
	ReferencesText string      `json:"references_text,omitempty"`
}

// Case converts the request into a candidate record.
func (r SaveRequest) Case() models.Case {
	refs := append([]string{}, r.References...)
	refs = append(refs, models.ParseReferences(r.ReferencesText)...)
	return models.Case{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Status:      r.Status,
		Description: r.Description,
		Content:     r.Content,
		Photo:       r.Photo,
		Date:        r.Date,
		References:  refs,
	}
}

// Service coordinates the view model and the index.
type Service struct {
	vm     *catalog.ViewModel
	db     index.CaseIndex
	logger *slog.Logger
}

// NewService creates a new case service. db may be nil, in which case full
// text search is unavailable.
func NewService(vm *catalog.ViewModel, db index.CaseIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{vm: vm, db: db, logger: logger}
}

// ViewModel returns the underlying view model.
func (s *Service) ViewModel() *catalog.ViewModel {
	return s.vm
}

// Reload re-runs the loader and re-syncs the index. A failed load leaves the
// previous records in place and returns a *catalog.LoadFailure.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.vm.Initialize(ctx); err != nil {
		return err
	}
	s.syncIndex()
	return nil
}

// ListCases returns the cases matching q, sorted by year. It does not touch
// the view model's own search state.
func (s *Service) ListCases(_ context.Context, q string) []CaseListItem {
	return listItems(catalog.FilterView(s.vm.Records(), q))
}

// View returns the view model's current filtered view and state.
func (s *Service) View(_ context.Context) View {
	return View{
		Cases: listItems(s.vm.FilteredView()),
		State: s.vm.State(),
	}
}

// GetCase returns one case by id.
func (s *Service) GetCase(_ context.Context, id string) (*CaseDetail, error) {
	c, ok := s.vm.Case(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return detail(c), nil
}

// SaveCase validates and upserts a case. A new id is assigned when the
// request has none. The boolean reports whether the case was created.
func (s *Service) SaveCase(ctx context.Context, req SaveRequest) (*CaseDetail, bool, error) {
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	_, existed := s.vm.Case(strings.TrimSpace(req.ID))

	saved, err := s.vm.SaveCase(ctx, req.Case())
	if err != nil {
		return nil, false, err
	}
	s.syncIndex()
	return detail(saved), !existed, nil
}

// Search runs a full-text query over names, locations and narratives.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("caseservice: search: index unavailable")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

func (s *Service) syncIndex() {
	if s.db == nil {
		return
	}
	stats, err := s.db.Sync(s.vm.Records())
	if err != nil {
		s.logger.Warn("index sync failed", slog.String("error", err.Error()))
		return
	}
	if stats.Indexed > 0 || stats.Removed > 0 {
		s.logger.Debug("index synced",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed))
	}
}

// PhotoURL returns the public URL of a photo file name.
func PhotoURL(photo string) string {
	if photo == "" {
		return ""
	}
	return "/photos/" + url.PathEscape(photo)
}

func detail(c models.Case) *CaseDetail {
	if c.References == nil {
		c.References = []string{}
	}
	return &CaseDetail{
		Case:      c,
		DateLabel: c.Date.Format(),
		Narrative: c.Narrative(),
		PhotoURL:  PhotoURL(c.Photo),
	}
}

func listItems(cases []models.Case) []CaseListItem {
	items := make([]CaseListItem, 0, len(cases))
	for _, c := range cases {
		items = append(items, CaseListItem{
			ID:        c.ID,
			Name:      c.Name,
			Location:  c.Location,
			Status:    c.Status,
			Year:      c.Date.Year,
			DateLabel: c.Date.Format(),
			PhotoURL:  PhotoURL(c.Photo),
		})
	}
	return items
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
