package caseservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/models"
	"github.com/starford/coldcases/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	dir, store := testutil.TestCatalog(t)
	testutil.SeedCases(t, dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vm := catalog.NewViewModel(catalog.NewLoader(store, catalog.WithLoaderLogger(logger)), catalog.WithLogger(logger))
	t.Cleanup(vm.Dispose)

	svc := NewService(vm, testutil.TestDB(t), logger)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return svc
}

func TestListCasesSortedAndFiltered(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	items := svc.ListCases(ctx, "")
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != "john-smith" || items[1].ID != "jane-doe" {
		t.Errorf("order = %s, %s; want john-smith, jane-doe", items[0].ID, items[1].ID)
	}
	if items[1].DateLabel != "5/1998" {
		t.Errorf("date label = %q, want 5/1998", items[1].DateLabel)
	}
	if items[1].PhotoURL != "/photos/jane.jpg" {
		t.Errorf("photo url = %q", items[1].PhotoURL)
	}

	items = svc.ListCases(ctx, "vernon")
	if len(items) != 1 || items[0].ID != "john-smith" {
		t.Errorf("filtered = %+v", items)
	}
}

func TestGetCase(t *testing.T) {
	svc := testService(t)

	got, err := svc.GetCase(context.Background(), "jane-doe")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Narrative == got.Description {
		t.Errorf("narrative should come from index.md, got %q", got.Narrative)
	}

	_, err = svc.GetCase(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveCaseAssignsIDAndMergesReferences(t *testing.T) {
	svc := testService(t)

	got, created, err := svc.SaveCase(context.Background(), SaveRequest{
		Name:           "Ann Roe",
		Location:       "Penticton",
		Status:         models.StatusSolved,
		Description:    "Resolved in 2001.",
		Date:           models.Date{Year: 1980},
		References:     []string{"https://example.org/a"},
		ReferencesText: "https://example.org/b\n\n  \nhttps://example.org/c\n",
	})
	if err != nil {
		t.Fatalf("SaveCase: %v", err)
	}
	if !created {
		t.Error("expected created = true")
	}
	if got.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if len(got.References) != 3 {
		t.Errorf("references = %v, want 3 entries", got.References)
	}
	if got.Date.Precision != models.PrecisionYear {
		t.Errorf("precision = %q, want year", got.Date.Precision)
	}
	if n := len(svc.ListCases(context.Background(), "")); n != 3 {
		t.Errorf("list len = %d, want 3", n)
	}
}

func TestSaveCaseUpdateInPlace(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	existing, err := svc.GetCase(ctx, "jane-doe")
	if err != nil {
		t.Fatal(err)
	}
	req := SaveRequest{
		ID:          existing.ID,
		Name:        "Jane Q. Doe",
		Location:    existing.Location,
		Status:      existing.Status,
		Description: existing.Description,
		Date:        existing.Date,
		References:  existing.References,
	}
	_, created, err := svc.SaveCase(ctx, req)
	if err != nil {
		t.Fatalf("SaveCase: %v", err)
	}
	if created {
		t.Error("expected created = false for an existing id")
	}

	records := svc.ViewModel().Records()
	if len(records) != 2 || records[0].Name != "Jane Q. Doe" {
		t.Errorf("records = %+v", records)
	}
}

func TestSaveCaseValidationFailure(t *testing.T) {
	svc := testService(t)

	_, _, err := svc.SaveCase(context.Background(), SaveRequest{ID: "x", Name: " "})
	var vf *catalog.ValidationFailure
	if !errors.As(err, &vf) {
		t.Fatalf("err = %v, want ValidationFailure", err)
	}
	if _, ok := vf.Fields["name"]; !ok {
		t.Errorf("fields = %v, want name", vf.Fields)
	}
	if n := len(svc.ViewModel().Records()); n != 2 {
		t.Errorf("records = %d, want unchanged 2", n)
	}
}

func TestSearchFollowsSaves(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	results, err := svc.Search(ctx, "orchard", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "jane-doe" {
		t.Fatalf("results = %+v", results)
	}

	_, _, err = svc.SaveCase(ctx, SaveRequest{
		ID:          "mary-major",
		Name:        "Mary Major",
		Location:    "Salmon Arm",
		Status:      models.StatusUnsolved,
		Description: "Seen at the orchard gate.",
		Date:        models.Date{Year: 1990},
	})
	if err != nil {
		t.Fatal(err)
	}
	results, err = svc.Search(ctx, "orchard", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("results after save = %d, want 2", len(results))
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	vm := catalog.NewViewModel(catalog.NewLoader(nil))
	t.Cleanup(vm.Dispose)
	svc := NewService(vm, nil, nil)
	if _, err := svc.Search(context.Background(), "x", 0); err == nil {
		t.Error("expected error without an index")
	}
}
