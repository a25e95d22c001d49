package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSampleContentCoversEveryType(t *testing.T) {
	for _, kind := range SectionTypes() {
		content, err := SampleContent(kind, nil)
		if err != nil {
			t.Fatalf("SampleContent(%s): %v", kind, err)
		}
		if content.Kind() != kind {
			t.Fatalf("SampleContent(%s) returned %s content", kind, content.Kind())
		}
		empty, err := EmptyContent(kind)
		if err != nil {
			t.Fatalf("EmptyContent(%s): %v", kind, err)
		}
		if empty.Kind() != kind {
			t.Fatalf("EmptyContent(%s) returned %s content", kind, empty.Kind())
		}
	}
	if _, err := SampleContent("banner", nil); !errors.Is(err, ErrUnknownSectionType) {
		t.Fatalf("expected ErrUnknownSectionType, got %v", err)
	}
}

func TestSampleContentUsesItemIDs(t *testing.T) {
	content, err := SampleContent(SectionTypeHeader, nil)
	if err != nil {
		t.Fatalf("SampleContent: %v", err)
	}
	header := content.(HeaderContent)
	seen := map[string]bool{}
	var walk func(items []MenuItem)
	walk = func(items []MenuItem) {
		for _, item := range items {
			if !strings.HasPrefix(item.ID, "itm_") {
				t.Fatalf("expected itm_ prefix, got %q", item.ID)
			}
			if seen[item.ID] {
				t.Fatalf("duplicate item id %s", item.ID)
			}
			seen[item.ID] = true
			walk(item.Children)
		}
	}
	walk(header.MenuItems)
}

func TestSectionJSONRoundTrip(t *testing.T) {
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)
	for _, kind := range SectionTypes() {
		content, err := SampleContent(kind, nil)
		if err != nil {
			t.Fatalf("SampleContent(%s): %v", kind, err)
		}
		section := Section{ID: "sec_1", Type: kind, Content: content, CreatedAt: now, UpdatedAt: now}

		data, err := json.Marshal(section)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", kind, err)
		}
		var decoded Section
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s): %v", kind, err)
		}
		if diff := cmp.Diff(section, decoded); diff != "" {
			t.Fatalf("%s round trip mismatch (-want +got):\n%s", kind, diff)
		}
	}
}

func TestSectionMarshalNilContentUsesEmptyVariant(t *testing.T) {
	data, err := json.Marshal(Section{ID: "sec_1", Type: SectionTypeContact})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"showForm":false`) {
		t.Fatalf("expected empty contact content, got %s", data)
	}
}

func TestDecodeContent(t *testing.T) {
	content, err := DecodeContent(SectionTypeTestimonials, json.RawMessage(`{"title":"T","testimonials":[{"id":"itm_1","author":"A","rating":4}]}`))
	if err != nil {
		t.Fatalf("DecodeContent: %v", err)
	}
	want := TestimonialsContent{Title: "T", Testimonials: []Testimonial{{ID: "itm_1", Author: "A", Rating: 4}}}
	if diff := cmp.Diff(Content(want), content); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}

	empty, err := DecodeContent(SectionTypeGallery, json.RawMessage(" null "))
	if err != nil {
		t.Fatalf("DecodeContent(null): %v", err)
	}
	if diff := cmp.Diff(Content(GalleryContent{}), empty); diff != "" {
		t.Fatalf("null content mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeContent("banner", json.RawMessage(`{}`)); !errors.Is(err, ErrUnknownSectionType) {
		t.Fatalf("expected ErrUnknownSectionType, got %v", err)
	}
	if _, err := DecodeContent(SectionTypeHero, json.RawMessage(`{"title":1}`)); err == nil {
		t.Fatalf("expected decode error for wrong field type")
	}
}

func TestCloneContentIsDeep(t *testing.T) {
	original := FooterContent{
		LinkGroups:  []FooterLinkGroup{{ID: "g", Links: []FooterLink{{ID: "l", Label: "About"}}}},
		SocialLinks: []SocialLink{{ID: "s", Platform: "github"}},
	}
	clone := CloneContent(original).(FooterContent)
	clone.LinkGroups[0].Links[0].Label = "changed"
	clone.SocialLinks[0].Platform = "changed"
	if original.LinkGroups[0].Links[0].Label != "About" || original.SocialLinks[0].Platform != "github" {
		t.Fatalf("clone shares nested slices with original")
	}

	header := HeaderContent{MenuItems: []MenuItem{{ID: "m", Children: []MenuItem{{ID: "c", Label: "Child"}}}}}
	headerClone := CloneContent(header).(HeaderContent)
	headerClone.MenuItems[0].Children[0].Label = "changed"
	if header.MenuItems[0].Children[0].Label != "Child" {
		t.Fatalf("clone shares submenu slices with original")
	}

	pricing := PricingContent{Plans: []PricingPlan{{ID: "p", Features: []string{"a"}}}}
	pricingClone := CloneContent(pricing).(PricingContent)
	pricingClone.Plans[0].Features[0] = "changed"
	if pricing.Plans[0].Features[0] != "a" {
		t.Fatalf("clone shares plan features with original")
	}
}

func TestCheckContent(t *testing.T) {
	if err := CheckContent(SectionTypeCTA, CTAContent{}); err != nil {
		t.Fatalf("CheckContent: %v", err)
	}
	if err := CheckContent(SectionTypeCTA, HeroContent{}); !errors.Is(err, ErrContentMismatch) {
		t.Fatalf("expected ErrContentMismatch, got %v", err)
	}
	if err := CheckContent("nope", HeroContent{}); !errors.Is(err, ErrUnknownSectionType) {
		t.Fatalf("expected ErrUnknownSectionType, got %v", err)
	}
}

func TestCheckContentLimitsMenuDepth(t *testing.T) {
	submenu := HeaderContent{MenuItems: []MenuItem{
		{ID: "m1", Label: "Products", Children: []MenuItem{{ID: "m2", Label: "Builder"}}},
	}}
	if err := CheckContent(SectionTypeHeader, submenu); err != nil {
		t.Fatalf("one submenu level should pass: %v", err)
	}

	nested := HeaderContent{MenuItems: []MenuItem{
		{ID: "m1", Label: "Products", Children: []MenuItem{
			{ID: "m2", Label: "Builder", Children: []MenuItem{{ID: "m3", Label: "Templates"}}},
		}},
	}}
	err := CheckContent(SectionTypeHeader, nested)
	if !errors.Is(err, ErrMenuTooDeep) {
		t.Fatalf("expected ErrMenuTooDeep, got %v", err)
	}
	if !strings.Contains(err.Error(), `"Builder"`) {
		t.Fatalf("error should name the offending item: %v", err)
	}
}

func TestParseSectionType(t *testing.T) {
	got, err := ParseSectionType("  CTA ")
	if err != nil || got != SectionTypeCTA {
		t.Fatalf("ParseSectionType: got %q, %v", got, err)
	}
	if _, err := ParseSectionType("banner"); !errors.Is(err, ErrUnknownSectionType) {
		t.Fatalf("expected ErrUnknownSectionType, got %v", err)
	}
}

func TestParsePreviewMode(t *testing.T) {
	tests := []struct {
		raw   string
		want  PreviewMode
		width int
	}{
		{raw: "desktop", want: PreviewModeDesktop, width: 1280},
		{raw: " Tablet", want: PreviewModeTablet, width: 768},
		{raw: "MOBILE", want: PreviewModeMobile, width: 375},
	}
	for _, tc := range tests {
		got, err := ParsePreviewMode(tc.raw)
		if err != nil {
			t.Fatalf("ParsePreviewMode(%q): %v", tc.raw, err)
		}
		if got != tc.want || got.Width() != tc.width {
			t.Fatalf("ParsePreviewMode(%q) = %s (%d)", tc.raw, got, got.Width())
		}
	}
	if _, err := ParsePreviewMode("watch"); !errors.Is(err, ErrInvalidPreviewMode) {
		t.Fatalf("expected ErrInvalidPreviewMode, got %v", err)
	}
}
