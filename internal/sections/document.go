package sections

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/espython/website-builder/internal/domain"
)

const maxSiteDocumentBytes = 16 << 20

// ExportFileName returns the download name for an export taken at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("website-%s.json", t.UTC().Format(time.DateOnly))
}

// ExportSite writes the ordered collection as a pretty-printed JSON document.
func (s *Store) ExportSite(w io.Writer) error {
	data, err := EncodeSiteDocument(s.Sections())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeSiteDocument renders sections in the export format.
func EncodeSiteDocument(sections []domain.Section) ([]byte, error) {
	if sections == nil {
		sections = []domain.Section{}
	}
	data, err := json.MarshalIndent(domain.SiteDocument{Sections: sections}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sections: encode site document: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeSiteDocument parses an export document. Anything other than an object carrying a
// well-formed sections array yields ErrInvalidSiteDocument.
func DecodeSiteDocument(r io.Reader) ([]domain.Section, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSiteDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrInvalidSiteDocument, err)
	}
	if len(data) > maxSiteDocumentBytes {
		return nil, fmt.Errorf("%w: document too large", ErrInvalidSiteDocument)
	}

	var envelope struct {
		Sections json.RawMessage `json:"sections"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalidSiteDocument)
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSiteDocument, err)
	}
	raw := bytes.TrimSpace(envelope.Sections)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: sections must be an array", ErrInvalidSiteDocument)
	}

	var sections []domain.Section
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSiteDocument, err)
	}
	if sections == nil {
		sections = []domain.Section{}
	}
	if err := validateSections(sections); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSiteDocument, err)
	}
	return sections, nil
}

// ImportSite replaces the collection with the sections of an export document.
// An invalid document leaves the collection unchanged.
func (s *Store) ImportSite(r io.Reader) error {
	sections, err := DecodeSiteDocument(r)
	if err != nil {
		return err
	}
	return s.replace(sections, OpImport)
}
