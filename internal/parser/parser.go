// Package parser decodes case metadata documents and Markdown narratives.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/coldcases/internal/models"
)

// Metadata is the on-disk shape of a case's meta document.
type Metadata struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Location    string      `json:"location" yaml:"location"`
	Status      string      `json:"status" yaml:"status"`
	Description string      `json:"description" yaml:"description"`
	Photo       string      `json:"photo" yaml:"photo"`
	Year        int         `json:"year" yaml:"year"`
	Date        models.Date `json:"date" yaml:"date"`
	References  []string    `json:"references" yaml:"references"`
}

// Case converts the metadata into a case record. folder supplies the id when
// the document does not carry one; content is the narrative body.
func (m *Metadata) Case(folder, content string) models.Case {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = folder
	}
	date := m.Date
	if date.Year == 0 {
		date.Year = m.Year
	}
	return models.Case{
		ID:          id,
		Name:        m.Name,
		Location:    m.Location,
		Status:      m.Status,
		Description: m.Description,
		Content:     content,
		Photo:       m.Photo,
		Date:        date,
		References:  m.References,
	}.Normalize()
}

// ParseMeta decodes a metadata document. The format is chosen from the
// file name's extension: .json, .yaml or .yml.
func ParseMeta(name string, data []byte) (*Metadata, error) {
	var m Metadata
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parser: decode %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parser: decode %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("parser: unsupported metadata format %q", ext)
	}
	return &m, nil
}

// Narrative holds a parsed Markdown narrative.
type Narrative struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// ParseNarrative separates optional YAML frontmatter from the Markdown body.
func ParseNarrative(data []byte) *Narrative {
	fm, body := splitFrontmatter(data)
	return &Narrative{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Without a well-formed block the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
