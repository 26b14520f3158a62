package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/models"
)

// DefaultDebounce is the quiescence window applied to search input.
const DefaultDebounce = 300 * time.Millisecond

// LoadErrorMessage is the user-facing text stored when a load fails.
const LoadErrorMessage = "Failed to load cases"

// CaseLoader produces the full set of cases. *Loader implements it.
type CaseLoader interface {
	Load(ctx context.Context) ([]models.Case, error)
}

// EventKind names a change observed on the view model.
type EventKind string

// Event kinds delivered to observers.
const (
	EventLoaded     EventKind = "catalog.loaded"
	EventLoadFailed EventKind = "catalog.load_failed"
	EventSaved      EventKind = "case.saved"
	EventSearch     EventKind = "view.search"
	EventAdmin      EventKind = "admin.toggled"
	EventEdit       EventKind = "admin.edit"
)

// Event describes one change. CaseID is set for case-scoped events.
type Event struct {
	Kind   EventKind
	CaseID string
}

// State is a snapshot of the transient view state.
type State struct {
	InputTerm  string       `json:"input_term"`
	SearchTerm string       `json:"search_term"`
	Loading    bool         `json:"loading"`
	LastError  string       `json:"last_error,omitempty"`
	Admin      bool         `json:"admin"`
	EditTarget *models.Case `json:"edit_target,omitempty"`
	Total      int          `json:"total"`
}

// Stats exposes counters useful for diagnostics and tests.
type Stats struct {
	Recomputes int
	Loads      int
}

// ViewModel owns the in-memory catalog and the state derived from it.
//
// The collection is only replaced by Initialize and modified by SaveCase,
// both under the lock, so readers never see a partially applied update.
type ViewModel struct {
	loader    CaseLoader
	validator *Validator
	logger    *slog.Logger
	observers []func(Event)
	debounce  *debouncer

	mu         sync.Mutex
	records    []models.Case
	version    uint64
	inputTerm  string
	searchTerm string
	inflight   int
	lastError  string
	admin      bool
	editTarget *models.Case
	disposed   bool
	stats      Stats

	view        []models.Case
	viewVersion uint64
	viewTerm    string
	viewValid   bool
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithDebounce sets the search quiescence window.
func WithDebounce(d time.Duration) Option {
	return func(vm *ViewModel) {
		if d > 0 {
			vm.debounce = newDebouncer(d)
		}
	}
}

// WithValidator replaces the validator used by SaveCase.
func WithValidator(v *Validator) Option {
	return func(vm *ViewModel) {
		vm.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(vm *ViewModel) {
		vm.logger = logger
	}
}

// WithObserver registers fn to be called after every change. Observers run
// outside the view model lock and may call back into it.
func WithObserver(fn func(Event)) Option {
	return func(vm *ViewModel) {
		vm.observers = append(vm.observers, fn)
	}
}

// NewViewModel creates an empty view model backed by loader.
func NewViewModel(loader CaseLoader, opts ...Option) *ViewModel {
	vm := &ViewModel{
		loader:    loader,
		validator: NewValidator(),
		logger:    slog.Default(),
		debounce:  newDebouncer(DefaultDebounce),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *ViewModel) notify(ev Event) {
	for _, fn := range vm.observers {
		fn(ev)
	}
}

// Initialize loads the catalog and replaces the collection. On failure the
// collection is left as is, LastError is set and the *LoadFailure returned.
// When calls overlap, the last one to resolve wins. A load that resolves
// after Dispose changes nothing.
func (vm *ViewModel) Initialize(ctx context.Context) error {
	vm.mu.Lock()
	if vm.disposed {
		vm.mu.Unlock()
		return apperr.ErrDisposed
	}
	vm.inflight++
	vm.lastError = ""
	vm.mu.Unlock()

	cases, err := vm.loader.Load(ctx)

	vm.mu.Lock()
	vm.inflight--
	if vm.disposed {
		vm.mu.Unlock()
		return apperr.ErrDisposed
	}
	if err != nil {
		var lf *LoadFailure
		if !errors.As(err, &lf) {
			err = &LoadFailure{Err: err}
		}
		vm.lastError = LoadErrorMessage
		vm.mu.Unlock()
		vm.logger.Error("catalog: load failed", slog.String("error", err.Error()))
		vm.notify(Event{Kind: EventLoadFailed})
		return err
	}
	records := make([]models.Case, len(cases))
	for i, c := range cases {
		records[i] = c.Clone()
	}
	vm.records = records
	vm.version++
	vm.lastError = ""
	vm.stats.Loads++
	vm.mu.Unlock()

	vm.logger.Info("catalog: loaded", slog.Int("cases", len(records)))
	vm.notify(Event{Kind: EventLoaded})
	return nil
}

// SetSearchTerm updates the live input immediately and the term driving the
// filtered view once the debounce window has passed since the last call.
func (vm *ViewModel) SetSearchTerm(text string) {
	vm.mu.Lock()
	if vm.disposed {
		vm.mu.Unlock()
		return
	}
	vm.inputTerm = text
	vm.mu.Unlock()

	vm.debounce.Trigger(func() {
		vm.mu.Lock()
		if vm.disposed {
			vm.mu.Unlock()
			return
		}
		vm.searchTerm = text
		vm.filteredViewLocked()
		vm.mu.Unlock()
		vm.notify(Event{Kind: EventSearch})
	})
}

// SearchPending reports whether a debounced search update is waiting.
func (vm *ViewModel) SearchPending() bool {
	return vm.debounce.Pending()
}

// FilteredView returns the cases matching the debounced search term ordered
// by year. The result is recomputed only when the collection or the term
// changed; otherwise the same slice is returned. Callers must not modify it.
func (vm *ViewModel) FilteredView() []models.Case {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.filteredViewLocked()
}

func (vm *ViewModel) filteredViewLocked() []models.Case {
	if vm.viewValid && vm.viewVersion == vm.version && vm.viewTerm == vm.searchTerm {
		return vm.view
	}
	vm.view = FilterView(vm.records, vm.searchTerm)
	vm.viewVersion = vm.version
	vm.viewTerm = vm.searchTerm
	vm.viewValid = true
	vm.stats.Recomputes++
	return vm.view
}

// ToggleAdminMode flips admin mode and returns the new value. Leaving admin
// mode abandons any edit in progress.
func (vm *ViewModel) ToggleAdminMode() bool {
	vm.mu.Lock()
	vm.admin = !vm.admin
	if !vm.admin {
		vm.editTarget = nil
	}
	admin := vm.admin
	vm.mu.Unlock()

	vm.notify(Event{Kind: EventAdmin})
	return admin
}

// BeginEdit makes a copy of c the edit target. It requires admin mode.
func (vm *ViewModel) BeginEdit(c models.Case) error {
	vm.mu.Lock()
	if !vm.admin {
		vm.mu.Unlock()
		return apperr.ErrNotAdmin
	}
	cp := c.Clone()
	vm.editTarget = &cp
	vm.mu.Unlock()

	vm.notify(Event{Kind: EventEdit, CaseID: c.ID})
	return nil
}

// BeginEditByID looks up a case and starts editing it.
func (vm *ViewModel) BeginEditByID(id string) error {
	c, ok := vm.Case(id)
	if !ok {
		return apperr.ErrNotFound
	}
	return vm.BeginEdit(c)
}

// CancelEdit clears the edit target without touching the collection.
func (vm *ViewModel) CancelEdit() {
	vm.mu.Lock()
	vm.editTarget = nil
	vm.mu.Unlock()

	vm.notify(Event{Kind: EventEdit})
}

// SaveCase validates candidate and upserts it by id: an existing case is
// replaced at its position, a new one is appended. A *ValidationFailure is
// returned, and nothing changes, when validation fails.
func (vm *ViewModel) SaveCase(_ context.Context, candidate models.Case) (models.Case, error) {
	c, err := vm.validator.Validate(candidate)
	if err != nil {
		return models.Case{}, err
	}

	vm.mu.Lock()
	if vm.disposed {
		vm.mu.Unlock()
		return models.Case{}, apperr.ErrDisposed
	}
	idx := -1
	for i := range vm.records {
		if vm.records[i].ID == c.ID {
			idx = i
			break
		}
	}
	// Copy on write so slices handed out by FilteredView stay untouched.
	records := make([]models.Case, len(vm.records), len(vm.records)+1)
	copy(records, vm.records)
	if idx >= 0 {
		records[idx] = c.Clone()
	} else {
		records = append(records, c.Clone())
	}
	vm.records = records
	vm.version++
	if vm.editTarget != nil && vm.editTarget.ID == c.ID {
		vm.editTarget = nil
	}
	vm.mu.Unlock()

	vm.logger.Info("catalog: case saved", slog.String("id", c.ID), slog.Bool("created", idx < 0))
	vm.notify(Event{Kind: EventSaved, CaseID: c.ID})
	return c, nil
}

// Records returns a copy of the collection in its stored order.
func (vm *ViewModel) Records() []models.Case {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]models.Case, len(vm.records))
	for i, c := range vm.records {
		out[i] = c.Clone()
	}
	return out
}

// Case returns a copy of the case with the given id.
func (vm *ViewModel) Case(id string) (models.Case, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for _, c := range vm.records {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return models.Case{}, false
}

// State returns a snapshot of the transient state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s := State{
		InputTerm:  vm.inputTerm,
		SearchTerm: vm.searchTerm,
		Loading:    vm.inflight > 0,
		LastError:  vm.lastError,
		Admin:      vm.admin,
		Total:      len(vm.records),
	}
	if vm.editTarget != nil {
		cp := vm.editTarget.Clone()
		s.EditTarget = &cp
	}
	return s
}

// Stats returns the current counters.
func (vm *ViewModel) Stats() Stats {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stats
}

// Dispose cancels any pending search update. Later loads and saves are
// rejected with apperr.ErrDisposed and in-flight loads are discarded.
func (vm *ViewModel) Dispose() {
	vm.mu.Lock()
	vm.disposed = true
	vm.mu.Unlock()
	vm.debounce.Stop()
}
