package catalog

import (
	"slices"
	"strings"

	"github.com/starford/coldcases/internal/models"
)

// Matches reports whether the case name or location contains term as a
// case-insensitive substring. An empty term matches everything.
func Matches(c models.Case, term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.Location), term)
}

// FilterView returns the cases matching term ordered by ascending year.
// Cases sharing a year keep their relative order. records is not modified.
func FilterView(records []models.Case, term string) []models.Case {
	out := make([]models.Case, 0, len(records))
	for _, c := range records {
		if Matches(c, term) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Case) int {
		return a.Date.Year - b.Date.Year
	})
	return out
}
