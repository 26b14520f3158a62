// Package models defines the domain types for the cold cases catalog.
package models

import (
	"fmt"
	"strings"
)

// Case statuses known out of the box. The accepted set is configurable.
const (
	StatusUnsolved = "Unsolved"
	StatusSolved   = "Solved"
	StatusCold     = "Cold Case"
)

// DefaultStatuses lists the statuses accepted when none are configured.
var DefaultStatuses = []string{StatusUnsolved, StatusSolved, StatusCold}

// Precision governs how a Date is displayed.
type Precision string

// Date precisions.
const (
	PrecisionYear  Precision = "year"
	PrecisionMonth Precision = "month"
	PrecisionExact Precision = "exact"
)

// Date is a possibly partial calendar date.
type Date struct {
	Year      int       `json:"year" yaml:"year"`
	Month     *int      `json:"month,omitempty" yaml:"month,omitempty"`
	Day       *int      `json:"day,omitempty" yaml:"day,omitempty"`
	Precision Precision `json:"precision" yaml:"precision"`
}

// Format renders the date according to its precision: "1990", "5/1990" or
// "5/3/1990". Fields missing for the requested precision fall back to the
// year alone.
func (d Date) Format() string {
	switch d.Precision {
	case PrecisionExact:
		if d.Month != nil && d.Day != nil {
			return fmt.Sprintf("%d/%d/%d", *d.Month, *d.Day, d.Year)
		}
	case PrecisionMonth:
		if d.Month != nil {
			return fmt.Sprintf("%d/%d", *d.Month, d.Year)
		}
	}
	return fmt.Sprintf("%d", d.Year)
}

// Case is one subject entry in the catalog.
type Case struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Photo       string   `json:"photo,omitempty"`
	Date        Date     `json:"date"`
	References  []string `json:"references"`
}

// Narrative returns the long-form content when present, else the description.
func (c Case) Narrative() string {
	if strings.TrimSpace(c.Content) != "" {
		return c.Content
	}
	return c.Description
}

// Clone returns a deep copy that shares no memory with c.
func (c Case) Clone() Case {
	out := c
	if c.Date.Month != nil {
		m := *c.Date.Month
		out.Date.Month = &m
	}
	if c.Date.Day != nil {
		d := *c.Date.Day
		out.Date.Day = &d
	}
	if c.References != nil {
		out.References = append([]string(nil), c.References...)
	}
	return out
}

// Normalize trims the text fields, drops blank references and defaults an
// empty precision to PrecisionYear.
func (c Case) Normalize() Case {
	out := c.Clone()
	out.ID = strings.TrimSpace(out.ID)
	out.Name = strings.TrimSpace(out.Name)
	out.Location = strings.TrimSpace(out.Location)
	out.Status = strings.TrimSpace(out.Status)
	out.Description = strings.TrimSpace(out.Description)
	out.Photo = strings.TrimSpace(out.Photo)
	if out.Date.Precision == "" {
		out.Date.Precision = PrecisionYear
	}
	refs := make([]string, 0, len(out.References))
	for _, r := range out.References {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	out.References = refs
	return out
}

// ParseReferences splits free text into one reference per line, skipping
// blank lines.
func ParseReferences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// IntPtr is a convenience for building optional date parts.
func IntPtr(v int) *int {
	return &v
}
