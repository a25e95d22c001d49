package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SectionType tags a section and determines the shape of its content.
type SectionType string

const (
	SectionTypeHero         SectionType = "hero"
	SectionTypeFeatures     SectionType = "features"
	SectionTypePricing      SectionType = "pricing"
	SectionTypeTestimonials SectionType = "testimonials"
	SectionTypeContact      SectionType = "contact"
	SectionTypeGallery      SectionType = "gallery"
	SectionTypeText         SectionType = "text"
	SectionTypeCTA          SectionType = "cta"
	SectionTypeHeader       SectionType = "header"
	SectionTypeFooter       SectionType = "footer"
)

var (
	// ErrUnknownSectionType indicates a section type outside the fixed set of kinds.
	ErrUnknownSectionType = errors.New("section: unknown type")
	// ErrContentMismatch indicates content whose variant does not match the section type.
	ErrContentMismatch = errors.New("section: content does not match type")
	// ErrMenuTooDeep indicates a header menu item whose submenu entries have children.
	ErrMenuTooDeep = errors.New("section: menu items nest at most one submenu level")
)

var sectionTypes = []SectionType{
	SectionTypeHero,
	SectionTypeFeatures,
	SectionTypePricing,
	SectionTypeTestimonials,
	SectionTypeContact,
	SectionTypeGallery,
	SectionTypeText,
	SectionTypeCTA,
	SectionTypeHeader,
	SectionTypeFooter,
}

// SectionTypes returns every supported section type in palette order.
func SectionTypes() []SectionType {
	out := make([]SectionType, len(sectionTypes))
	copy(out, sectionTypes)
	return out
}

// Valid reports whether t is one of the known section types.
func (t SectionType) Valid() bool {
	for _, known := range sectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseSectionType normalises raw input into a known section type.
func ParseSectionType(raw string) (SectionType, error) {
	t := SectionType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSectionType, raw)
	}
	return t, nil
}

// Section is one building block of a page.
type Section struct {
	ID        string
	Type      SectionType
	Content   Content
	CreatedAt time.Time
	UpdatedAt time.Time
}

type sectionJSON struct {
	ID        string          `json:"id"`
	Type      SectionType     `json:"type"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// MarshalJSON encodes the section with its content variant inline.
func (s Section) MarshalJSON() ([]byte, error) {
	content := s.Content
	if content == nil {
		empty, err := EmptyContent(s.Type)
		if err != nil {
			return nil, err
		}
		content = empty
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("section %s: encode content: %w", s.ID, err)
	}
	return json.Marshal(sectionJSON{
		ID:        s.ID,
		Type:      s.Type,
		Content:   raw,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

// UnmarshalJSON decodes the section, dispatching the content on its type.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := DecodeContent(raw.Type, raw.Content)
	if err != nil {
		return err
	}
	*s = Section{
		ID:        raw.ID,
		Type:      raw.Type,
		Content:   content,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.Content != nil {
		out.Content = CloneContent(s.Content)
	}
	return out
}

// CloneSections deep-copies a slice of sections.
func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, section := range in {
		out[i] = section.Clone()
	}
	return out
}

// SiteDocument is the export/import envelope.
type SiteDocument struct {
	Sections []Section `json:"sections"`
}
