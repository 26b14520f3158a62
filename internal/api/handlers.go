package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/caseservice"
	"github.com/starford/coldcases/internal/catalog"
)

// Handler holds API route handlers.
type Handler struct {
	svc *caseservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *caseservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	var vf *catalog.ValidationFailure
	var lf *catalog.LoadFailure
	switch {
	case errors.As(err, &vf):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: vf.Fields})
	case errors.As(err, &lf):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(catalog.LoadErrorMessage))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNotAdmin):
		writeJSON(w, http.StatusConflict, errorBody("admin mode is off"))
	case errors.Is(err, apperr.ErrDisposed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("catalog is shutting down"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListCases handles GET /api/cases.
//
//	@Summary		List cases filtered by name or location, oldest first
//	@Tags			cases
//	@Produce		json
//	@Param			q	query		string	false	"Substring of name or location"
//	@Success		200	{object}	CaseListResponse
//	@Router			/cases [get]
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListCases(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, CaseListResponse{Cases: items, Total: len(items)})
}

// GetCase handles GET /api/cases/{id}.
//
//	@Summary		Get a single case
//	@Tags			cases
//	@Produce		json
//	@Param			id	path		string	true	"Case id"
//	@Success		200	{object}	CaseDetail
//	@Failure		404	{object}	errResponse
//	@Router			/cases/{id} [get]
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get case", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCase handles POST /api/cases. An existing id updates that case.
//
//	@Summary		Create a case
//	@Tags			cases
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveCaseRequest	true	"Case to save"
//	@Success		201		{object}	CaseDetail
//	@Success		200		{object}	CaseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Router			/cases [post]
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req SaveCaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, created, err := h.svc.SaveCase(r.Context(), req)
	if err != nil {
		writeError(w, "create case", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, c)
}

// UpdateCase handles PUT /api/cases/{id}. The path id wins over the body.
//
//	@Summary		Update or insert a case by id
//	@Tags			cases
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Case id"
//	@Param			body	body		SaveCaseRequest	true	"Case to save"
//	@Success		200		{object}	CaseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Router			/cases/{id} [put]
func (h *Handler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req SaveCaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.ID = id
	c, _, err := h.svc.SaveCase(r.Context(), req)
	if err != nil {
		writeError(w, "update case", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetView handles GET /api/view.
//
//	@Summary		Current filtered view and view state
//	@Tags			view
//	@Produce		json
//	@Success		200	{object}	ViewResponse
//	@Router			/view [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.View(r.Context()))
}

// SetSearch handles PUT /api/view/search. The view follows after the
// debounce window.
//
//	@Summary		Set the search input
//	@Tags			view
//	@Accept			json
//	@Param			body	body	SearchTermRequest	true	"Search input"
//	@Success		202		{object}	ViewResponse
//	@Router			/view/search [put]
func (h *Handler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchTermRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.svc.ViewModel().SetSearchTerm(req.Term)
	writeJSON(w, http.StatusAccepted, h.svc.View(r.Context()))
}

// ToggleAdmin handles POST /api/admin/toggle.
//
//	@Summary		Toggle admin mode
//	@Tags			admin
//	@Success		200	{object}	AdminResponse
//	@Router			/admin/toggle [post]
func (h *Handler) ToggleAdmin(w http.ResponseWriter, _ *http.Request) {
	vm := h.svc.ViewModel()
	vm.ToggleAdminMode()
	writeJSON(w, http.StatusOK, AdminResponse{State: vm.State()})
}

// BeginEdit handles POST /api/admin/edit/{id}.
//
//	@Summary		Start editing a case
//	@Tags			admin
//	@Param			id	path		string	true	"Case id"
//	@Success		200	{object}	AdminResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Router			/admin/edit/{id} [post]
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	vm := h.svc.ViewModel()
	if err := vm.BeginEditByID(chi.URLParam(r, "id")); err != nil {
		writeError(w, "begin edit", err)
		return
	}
	writeJSON(w, http.StatusOK, AdminResponse{State: vm.State()})
}

// CancelEdit handles DELETE /api/admin/edit.
//
//	@Summary		Cancel the current edit
//	@Tags			admin
//	@Success		200	{object}	AdminResponse
//	@Router			/admin/edit [delete]
func (h *Handler) CancelEdit(w http.ResponseWriter, _ *http.Request) {
	vm := h.svc.ViewModel()
	vm.CancelEdit()
	writeJSON(w, http.StatusOK, AdminResponse{State: vm.State()})
}

// Reload handles POST /api/reload.
//
//	@Summary		Reload the catalog from disk
//	@Tags			admin
//	@Success		200	{object}	ViewResponse
//	@Failure		503	{object}	errResponse
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(r.Context()); err != nil {
		writeError(w, "reload", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.View(r.Context()))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across names, locations and narratives
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
