package api

import (
	"github.com/starford/coldcases/internal/caseservice"
	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/index"
)

// SaveCaseRequest is the admin form body for creating or updating a case.
type SaveCaseRequest = caseservice.SaveRequest

// CaseDetail is the full case response type (aliased from the domain layer).
type CaseDetail = caseservice.CaseDetail

// CaseListItem is a lightweight item in a list response (aliased from the domain layer).
type CaseListItem = caseservice.CaseListItem

// ViewResponse is the view model's filtered view and state.
type ViewResponse = caseservice.View

// CaseListResponse wraps case listings.
type CaseListResponse struct {
	Cases []CaseListItem `json:"cases"`
	Total int            `json:"total" example:"42"`
}

// SearchTermRequest sets the view model's search input.
type SearchTermRequest struct {
	Term string `json:"term" example:"kelowna"`
}

// AdminResponse reports the admin state after a toggle or edit change.
type AdminResponse struct {
	State catalog.State `json:"state"`
}

// SearchResponse wraps full-text search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// validationResponse carries per-field messages for a rejected save.
type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
