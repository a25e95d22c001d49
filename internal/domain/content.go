package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Content is the kind-specific payload of a section. The set of implementations is closed.
type Content interface {
	Kind() SectionType
	sealed()
}

type HeroContent struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	ButtonText      string `json:"buttonText"`
	ButtonLink      string `json:"buttonLink"`
	BackgroundImage string `json:"backgroundImage"`
	Alignment       string `json:"alignment"`
	Overlay         bool   `json:"overlay"`
}

type FeaturesContent struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Layout   string        `json:"layout"`
	Features []FeatureItem `json:"features"`
}

type FeatureItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type PricingContent struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Plans    []PricingPlan `json:"plans"`
}

type PricingPlan struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      string   `json:"price"`
	Interval   string   `json:"interval"`
	Features   []string `json:"features"`
	ButtonText string   `json:"buttonText"`
	ButtonLink string   `json:"buttonLink"`
	Featured   bool     `json:"featured"`
}

type TestimonialsContent struct {
	Title        string        `json:"title"`
	Subtitle     string        `json:"subtitle"`
	Testimonials []Testimonial `json:"testimonials"`
}

type Testimonial struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Avatar  string `json:"avatar"`
	Rating  int    `json:"rating"`
}

type ContactContent struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	ShowForm   bool   `json:"showForm"`
	ShowMap    bool   `json:"showMap"`
	SubmitText string `json:"submitText"`
}

type GalleryContent struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Layout   string        `json:"layout"`
	Items    []GalleryItem `json:"items"`
}

type GalleryItem struct {
	ID      string `json:"id"`
	Image   string `json:"image"`
	Caption string `json:"caption"`
	Link    string `json:"link"`
}

// TextContent holds rich text. Content is HTML; text without markup is treated as markdown when rendered.
type TextContent struct {
	Content   string `json:"content"`
	Alignment string `json:"alignment"`
}

type CTAContent struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	ButtonText          string `json:"buttonText"`
	ButtonLink          string `json:"buttonLink"`
	SecondaryButtonText string `json:"secondaryButtonText"`
	SecondaryButtonLink string `json:"secondaryButtonLink"`
	BackgroundColor     string `json:"backgroundColor"`
}

type HeaderContent struct {
	Logo      string     `json:"logo"`
	LogoText  string     `json:"logoText"`
	Sticky    bool       `json:"sticky"`
	ShowCTA   bool       `json:"showCta"`
	CTAText   string     `json:"ctaText"`
	CTALink   string     `json:"ctaLink"`
	MenuItems []MenuItem `json:"menuItems"`
}

// MenuItem is a navigation entry. Children form a single submenu level.
type MenuItem struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Link     string     `json:"link"`
	Children []MenuItem `json:"children,omitempty"`
}

type FooterContent struct {
	Logo        string            `json:"logo"`
	Description string            `json:"description"`
	Copyright   string            `json:"copyright"`
	LinkGroups  []FooterLinkGroup `json:"linkGroups"`
	SocialLinks []SocialLink      `json:"socialLinks"`
}

type FooterLinkGroup struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Links []FooterLink `json:"links"`
}

type FooterLink struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Link  string `json:"link"`
}

type SocialLink struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

func (HeroContent) Kind() SectionType         { return SectionTypeHero }
func (FeaturesContent) Kind() SectionType     { return SectionTypeFeatures }
func (PricingContent) Kind() SectionType      { return SectionTypePricing }
func (TestimonialsContent) Kind() SectionType { return SectionTypeTestimonials }
func (ContactContent) Kind() SectionType      { return SectionTypeContact }
func (GalleryContent) Kind() SectionType      { return SectionTypeGallery }
func (TextContent) Kind() SectionType         { return SectionTypeText }
func (CTAContent) Kind() SectionType          { return SectionTypeCTA }
func (HeaderContent) Kind() SectionType       { return SectionTypeHeader }
func (FooterContent) Kind() SectionType       { return SectionTypeFooter }

func (HeroContent) sealed()         {}
func (FeaturesContent) sealed()     {}
func (PricingContent) sealed()      {}
func (TestimonialsContent) sealed() {}
func (ContactContent) sealed()      {}
func (GalleryContent) sealed()      {}
func (TextContent) sealed()         {}
func (CTAContent) sealed()          {}
func (HeaderContent) sealed()       {}
func (FooterContent) sealed()       {}

// ItemID implementations let sub-entities participate in id-based list editing.
func (f FeatureItem) ItemID() string     { return f.ID }
func (p PricingPlan) ItemID() string     { return p.ID }
func (t Testimonial) ItemID() string     { return t.ID }
func (g GalleryItem) ItemID() string     { return g.ID }
func (m MenuItem) ItemID() string        { return m.ID }
func (g FooterLinkGroup) ItemID() string { return g.ID }
func (l FooterLink) ItemID() string      { return l.ID }
func (s SocialLink) ItemID() string      { return s.ID }

// EmptyContent returns the zero-value content variant for a type.
func EmptyContent(t SectionType) (Content, error) {
	switch t {
	case SectionTypeHero:
		return HeroContent{}, nil
	case SectionTypeFeatures:
		return FeaturesContent{}, nil
	case SectionTypePricing:
		return PricingContent{}, nil
	case SectionTypeTestimonials:
		return TestimonialsContent{}, nil
	case SectionTypeContact:
		return ContactContent{}, nil
	case SectionTypeGallery:
		return GalleryContent{}, nil
	case SectionTypeText:
		return TextContent{}, nil
	case SectionTypeCTA:
		return CTAContent{}, nil
	case SectionTypeHeader:
		return HeaderContent{}, nil
	case SectionTypeFooter:
		return FooterContent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSectionType, string(t))
	}
}

// DecodeContent decodes raw JSON into the content variant selected by t.
// Missing or null content decodes to the empty variant.
func DecodeContent(t SectionType, raw json.RawMessage) (Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return EmptyContent(t)
	}
	switch t {
	case SectionTypeHero:
		return decodeVariant[HeroContent](trimmed)
	case SectionTypeFeatures:
		return decodeVariant[FeaturesContent](trimmed)
	case SectionTypePricing:
		return decodeVariant[PricingContent](trimmed)
	case SectionTypeTestimonials:
		return decodeVariant[TestimonialsContent](trimmed)
	case SectionTypeContact:
		return decodeVariant[ContactContent](trimmed)
	case SectionTypeGallery:
		return decodeVariant[GalleryContent](trimmed)
	case SectionTypeText:
		return decodeVariant[TextContent](trimmed)
	case SectionTypeCTA:
		return decodeVariant[CTAContent](trimmed)
	case SectionTypeHeader:
		return decodeVariant[HeaderContent](trimmed)
	case SectionTypeFooter:
		return decodeVariant[FooterContent](trimmed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSectionType, string(t))
	}
}

func decodeVariant[T Content](raw []byte) (Content, error) {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", value.Kind(), err)
	}
	return value, nil
}

// CheckContent verifies that content is present and matches t.
func CheckContent(t SectionType, content Content) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSectionType, string(t))
	}
	if content == nil {
		return fmt.Errorf("%w: content is required for %s", ErrContentMismatch, t)
	}
	if content.Kind() != t {
		return fmt.Errorf("%w: %s content for %s section", ErrContentMismatch, content.Kind(), t)
	}
	if header, ok := content.(HeaderContent); ok {
		for _, item := range header.MenuItems {
			for _, child := range item.Children {
				if len(child.Children) > 0 {
					return fmt.Errorf("%w: %q under %q", ErrMenuTooDeep, child.Label, item.Label)
				}
			}
		}
	}
	return nil
}

// CloneContent returns a deep copy so callers never share nested slices with the store.
func CloneContent(content Content) Content {
	switch c := content.(type) {
	case HeroContent:
		return c
	case FeaturesContent:
		c.Features = slices.Clone(c.Features)
		return c
	case PricingContent:
		plans := slices.Clone(c.Plans)
		for i := range plans {
			plans[i].Features = slices.Clone(plans[i].Features)
		}
		c.Plans = plans
		return c
	case TestimonialsContent:
		c.Testimonials = slices.Clone(c.Testimonials)
		return c
	case ContactContent:
		return c
	case GalleryContent:
		c.Items = slices.Clone(c.Items)
		return c
	case TextContent:
		return c
	case CTAContent:
		return c
	case HeaderContent:
		c.MenuItems = cloneMenuItems(c.MenuItems)
		return c
	case FooterContent:
		groups := slices.Clone(c.LinkGroups)
		for i := range groups {
			groups[i].Links = slices.Clone(groups[i].Links)
		}
		c.LinkGroups = groups
		c.SocialLinks = slices.Clone(c.SocialLinks)
		return c
	default:
		return content
	}
}

func cloneMenuItems(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Children = cloneMenuItems(item.Children)
	}
	return out
}
