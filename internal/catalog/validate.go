package catalog

import (
	"errors"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/coldcases/internal/models"
)

// Rejection explains why the loader dropped a record.
type Rejection struct {
	Folder string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("case %s rejected: %s", r.Folder, r.Reason)
}

// Accept applies the minimal acceptance check used when loading: id and
// name must be non-empty after trimming.
func Accept(folder string, c models.Case) error {
	c = c.Normalize()
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Name, validation.Required),
	)
	if err != nil {
		return &Rejection{Folder: folder, Reason: err.Error()}
	}
	return nil
}

// Validator performs the strict checks applied to cases saved from the
// admin form.
type Validator struct {
	statuses []any
}

// NewValidator returns a Validator accepting the given statuses, or
// models.DefaultStatuses when none are given.
func NewValidator(statuses ...string) *Validator {
	if len(statuses) == 0 {
		statuses = models.DefaultStatuses
	}
	v := &Validator{statuses: make([]any, len(statuses))}
	for i, s := range statuses {
		v.statuses[i] = s
	}
	return v
}

// Validate normalizes c and checks it. A *ValidationFailure is returned
// when any field is rejected.
func (v *Validator) Validate(c models.Case) (models.Case, error) {
	c = c.Normalize()
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Location, validation.Required),
		validation.Field(&c.Status, validation.Required, validation.In(v.statuses...).Error("must be a known status")),
		validation.Field(&c.Description, validation.Required),
		validation.Field(&c.Date, validation.By(validateDate)),
		validation.Field(&c.References, validation.Each(validation.By(absoluteURL))),
	)
	if err != nil {
		return c, newValidationFailure(err)
	}
	return c, nil
}

func validateDate(value any) error {
	d, ok := value.(models.Date)
	if !ok {
		return errors.New("must be a date")
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Year, validation.Required, validation.Min(1)),
		validation.Field(&d.Month,
			validation.When(d.Precision == models.PrecisionMonth || d.Precision == models.PrecisionExact, validation.Required),
			validation.NilOrNotEmpty, validation.Min(1), validation.Max(12)),
		validation.Field(&d.Day,
			validation.When(d.Precision == models.PrecisionExact, validation.Required),
			validation.NilOrNotEmpty, validation.Min(1), validation.Max(31)),
		validation.Field(&d.Precision, validation.Required,
			validation.In(models.PrecisionYear, models.PrecisionMonth, models.PrecisionExact)),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}
