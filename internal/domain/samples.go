package domain

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	sectionIDPrefix = "sec_"
	itemIDPrefix    = "itm_"
	projectIDPrefix = "prj_"
)

// NewSectionID generates an identifier for a section.
func NewSectionID() string {
	return sectionIDPrefix + ulid.Make().String()
}

// NewItemID generates an identifier for a list sub-entity.
func NewItemID() string {
	return itemIDPrefix + ulid.Make().String()
}

// NewProjectID generates an identifier for a project.
func NewProjectID() string {
	return projectIDPrefix + ulid.Make().String()
}

// EnsurePrefix ensures identifiers carry the given prefix.
func EnsurePrefix(prefix, value string) string {
	if value == "" || strings.HasPrefix(value, prefix) {
		return value
	}
	return prefix + value
}

func itemIDs(newID func() string) func() string {
	if newID == nil {
		return NewItemID
	}
	return newID
}

// NewFeatureItem returns a blank feature entry.
func NewFeatureItem(newID func() string) FeatureItem {
	return FeatureItem{ID: itemIDs(newID)(), Title: "New Feature", Description: "Describe this feature", Icon: "star"}
}

// NewPricingPlan returns a blank pricing plan.
func NewPricingPlan(newID func() string) PricingPlan {
	return PricingPlan{
		ID:         itemIDs(newID)(),
		Name:       "New Plan",
		Price:      "$0",
		Interval:   "month",
		Features:   []string{},
		ButtonText: "Get Started",
		ButtonLink: "#",
	}
}

// NewTestimonial returns a blank testimonial.
func NewTestimonial(newID func() string) Testimonial {
	return Testimonial{ID: itemIDs(newID)(), Content: "", Author: "Customer Name", Rating: 5}
}

// NewGalleryItem returns a blank gallery entry.
func NewGalleryItem(newID func() string) GalleryItem {
	return GalleryItem{ID: itemIDs(newID)()}
}

// NewMenuItem returns a blank navigation entry.
func NewMenuItem(newID func() string) MenuItem {
	return MenuItem{ID: itemIDs(newID)(), Label: "New Link", Link: "#"}
}

// NewFooterLinkGroup returns an empty link group.
func NewFooterLinkGroup(newID func() string) FooterLinkGroup {
	return FooterLinkGroup{ID: itemIDs(newID)(), Title: "New Group", Links: []FooterLink{}}
}

// NewFooterLink returns a blank footer link.
func NewFooterLink(newID func() string) FooterLink {
	return FooterLink{ID: itemIDs(newID)(), Label: "New Link", Link: "#"}
}

// NewSocialLink returns a blank social link.
func NewSocialLink(newID func() string) SocialLink {
	return SocialLink{ID: itemIDs(newID)(), Platform: "twitter", URL: "#"}
}

// SampleContent returns the content a section starts with when picked from the palette.
func SampleContent(t SectionType, newID func() string) (Content, error) {
	id := itemIDs(newID)
	switch t {
	case SectionTypeHero:
		return HeroContent{
			Title:           "Build Something Amazing",
			Subtitle:        "Create beautiful websites without writing a single line of code.",
			ButtonText:      "Get Started",
			ButtonLink:      "#",
			BackgroundImage: "https://images.unsplash.com/photo-1557683316-973673baf926",
			Alignment:       "center",
			Overlay:         true,
		}, nil
	case SectionTypeFeatures:
		return FeaturesContent{
			Title:    "Why Choose Us",
			Subtitle: "Everything you need to launch your site",
			Layout:   "grid",
			Features: []FeatureItem{
				{ID: id(), Title: "Fast", Description: "Pages load in a blink.", Icon: "zap"},
				{ID: id(), Title: "Secure", Description: "Your content stays safe.", Icon: "shield"},
				{ID: id(), Title: "Flexible", Description: "Arrange sections any way you like.", Icon: "layout"},
			},
		}, nil
	case SectionTypePricing:
		return PricingContent{
			Title:    "Simple Pricing",
			Subtitle: "Pick the plan that fits you",
			Plans: []PricingPlan{
				{
					ID: id(), Name: "Starter", Price: "$9", Interval: "month",
					Features:   []string{"1 website", "Basic analytics"},
					ButtonText: "Choose Starter", ButtonLink: "#",
				},
				{
					ID: id(), Name: "Pro", Price: "$29", Interval: "month",
					Features:   []string{"10 websites", "Advanced analytics", "Priority support"},
					ButtonText: "Choose Pro", ButtonLink: "#", Featured: true,
				},
			},
		}, nil
	case SectionTypeTestimonials:
		return TestimonialsContent{
			Title:    "What Our Customers Say",
			Subtitle: "Trusted by teams everywhere",
			Testimonials: []Testimonial{
				{ID: id(), Content: "The easiest builder we have used.", Author: "Jane Doe", Role: "Founder", Company: "Acme", Rating: 5},
				{ID: id(), Content: "We launched in an afternoon.", Author: "John Smith", Role: "Marketing Lead", Company: "Globex", Rating: 4},
			},
		}, nil
	case SectionTypeContact:
		return ContactContent{
			Title:      "Get in Touch",
			Subtitle:   "We would love to hear from you",
			Email:      "hello@example.com",
			Phone:      "+1 555 0100",
			Address:    "123 Main Street",
			ShowForm:   true,
			ShowMap:    false,
			SubmitText: "Send Message",
		}, nil
	case SectionTypeGallery:
		return GalleryContent{
			Title:    "Gallery",
			Subtitle: "A look at our work",
			Layout:   "grid",
			Items: []GalleryItem{
				{ID: id(), Image: "https://images.unsplash.com/photo-1497366216548-37526070297c", Caption: "Office"},
				{ID: id(), Image: "https://images.unsplash.com/photo-1497366811353-6870744d04b2", Caption: "Workspace"},
			},
		}, nil
	case SectionTypeText:
		return TextContent{
			Content:   "<h2>About Us</h2><p>Tell your story here.</p>",
			Alignment: "left",
		}, nil
	case SectionTypeCTA:
		return CTAContent{
			Title:               "Ready to Get Started?",
			Description:         "Join thousands of happy customers today.",
			ButtonText:          "Start Free Trial",
			ButtonLink:          "#",
			SecondaryButtonText: "Learn More",
			SecondaryButtonLink: "#",
			BackgroundColor:     "#4f46e5",
		}, nil
	case SectionTypeHeader:
		return HeaderContent{
			LogoText: "Brand",
			Sticky:   true,
			ShowCTA:  true,
			CTAText:  "Sign Up",
			CTALink:  "#",
			MenuItems: []MenuItem{
				{ID: id(), Label: "Home", Link: "#"},
				{ID: id(), Label: "Products", Link: "#", Children: []MenuItem{
					{ID: id(), Label: "Builder", Link: "#"},
					{ID: id(), Label: "Hosting", Link: "#"},
				}},
				{ID: id(), Label: "Contact", Link: "#contact"},
			},
		}, nil
	case SectionTypeFooter:
		return FooterContent{
			Description: "Websites made simple.",
			Copyright:   "© Brand. All rights reserved.",
			LinkGroups: []FooterLinkGroup{
				{ID: id(), Title: "Company", Links: []FooterLink{
					{ID: id(), Label: "About", Link: "#"},
					{ID: id(), Label: "Careers", Link: "#"},
				}},
				{ID: id(), Title: "Resources", Links: []FooterLink{
					{ID: id(), Label: "Blog", Link: "#"},
					{ID: id(), Label: "Help Center", Link: "#"},
				}},
			},
			SocialLinks: []SocialLink{
				{ID: id(), Platform: "twitter", URL: "https://twitter.com"},
				{ID: id(), Platform: "github", URL: "https://github.com"},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSectionType, string(t))
	}
}
