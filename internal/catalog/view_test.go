package catalog

import (
	"testing"

	"github.com/starford/coldcases/internal/models"
)

func TestMatches(t *testing.T) {
	c := models.Case{Name: "Jane Doe", Location: "Kelowna"}
	for term, want := range map[string]bool{
		"":        true,
		"jane":    true,
		"JANE":    true,
		"owna":    true,
		"vernon":  false,
		"jane k":  false,
		"doe":     true,
		"kelowna": true,
	} {
		if got := Matches(c, term); got != want {
			t.Errorf("Matches(%q) = %v, want %v", term, got, want)
		}
	}
}

func TestFilterView_DoesNotModifyInput(t *testing.T) {
	in := []models.Case{
		{ID: "a", Name: "A", Date: models.Date{Year: 2005}},
		{ID: "b", Name: "B", Date: models.Date{Year: 1974}},
	}
	out := FilterView(in, "")
	if out[0].ID != "b" || in[0].ID != "a" {
		t.Errorf("out = %v, in = %v", ids(out), ids(in))
	}
}
