// Package catalog lists the section palette and starter page templates.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/espython/website-builder/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrTemplateNotFound is returned for unknown template ids.
var ErrTemplateNotFound = errors.New("catalog: template not found")

// PaletteEntry describes one section kind offered for insertion.
type PaletteEntry struct {
	Kind        domain.SectionType `yaml:"kind" json:"kind"`
	Label       string             `yaml:"label" json:"label"`
	Icon        string             `yaml:"icon" json:"icon"`
	Description string             `yaml:"description" json:"description"`
}

// Template is a named starter layout: an ordered list of section kinds.
type Template struct {
	ID          string               `yaml:"id" json:"id"`
	Name        string               `yaml:"name" json:"name"`
	Description string               `yaml:"description" json:"description"`
	Sections    []domain.SectionType `yaml:"sections" json:"sections"`
}

type catalogFile struct {
	Palette   []PaletteEntry `yaml:"palette"`
	Templates []Template     `yaml:"templates"`
}

// Catalog is immutable after construction.
type Catalog struct {
	palette   []PaletteEntry
	templates []Template
	byID      map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(file.Templates))}
	seenKinds := make(map[domain.SectionType]struct{}, len(file.Palette))
	for _, entry := range file.Palette {
		kind, err := domain.ParseSectionType(string(entry.Kind))
		if err != nil {
			return nil, fmt.Errorf("catalog: palette: %w", err)
		}
		if _, dup := seenKinds[kind]; dup {
			return nil, fmt.Errorf("catalog: palette lists %s twice", kind)
		}
		seenKinds[kind] = struct{}{}
		entry.Kind = kind
		c.palette = append(c.palette, entry)
	}

	for _, tmpl := range file.Templates {
		tmpl.ID = strings.TrimSpace(tmpl.ID)
		if tmpl.ID == "" {
			return nil, errors.New("catalog: template id is required")
		}
		if _, dup := c.byID[tmpl.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template %s", tmpl.ID)
		}
		kinds := make([]domain.SectionType, 0, len(tmpl.Sections))
		for _, raw := range tmpl.Sections {
			kind, err := domain.ParseSectionType(string(raw))
			if err != nil {
				return nil, fmt.Errorf("catalog: template %s: %w", tmpl.ID, err)
			}
			kinds = append(kinds, kind)
		}
		tmpl.Sections = kinds
		c.byID[tmpl.ID] = len(c.templates)
		c.templates = append(c.templates, tmpl)
	}
	return c, nil
}

// Palette returns the insertable section kinds in display order.
func (c *Catalog) Palette() []PaletteEntry {
	return append([]PaletteEntry(nil), c.palette...)
}

// Templates returns every starter template.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	for i, tmpl := range c.templates {
		out[i] = tmpl.clone()
	}
	return out
}

// Template looks up a template by id.
func (c *Catalog) Template(id string) (Template, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return c.templates[idx].clone(), nil
}

func (t Template) clone() Template {
	t.Sections = append([]domain.SectionType{}, t.Sections...)
	return t
}
