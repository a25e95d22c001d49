// Package render produces server-side HTML previews of a page.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"

	"github.com/espython/website-builder/internal/domain"
)

// DefaultPlaceholderImage is shown wherever an image field is empty.
const DefaultPlaceholderImage = "https://placehold.co/1200x600?text=Image"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var (
	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	htmlTag  = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
)

var modeWidths = map[domain.PreviewMode]string{
	domain.PreviewModeDesktop: "100%",
	domain.PreviewModeTablet:  "768px",
	domain.PreviewModeMobile:  "375px",
}

// Width returns the frame width used for a preview mode.
func Width(mode domain.PreviewMode) string {
	if w, ok := modeWidths[mode]; ok {
		return w
	}
	return modeWidths[domain.DefaultPreviewMode]
}

// Page is the input of a render.
type Page struct {
	Project    domain.Project
	Sections   []domain.Section
	Mode       domain.PreviewMode
	SelectedID string
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithPlaceholderImage overrides the image used for empty image fields.
func WithPlaceholderImage(url string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(url) != "" {
			r.placeholder = url
		}
	}
}

// WithDefaultLanguage sets the document language used when a project has no locale.
func WithDefaultLanguage(tag language.Tag) Option {
	return func(r *Renderer) {
		if tag != language.Und {
			r.defaultLang = tag
		}
	}
}

// WithPolicy replaces the sanitiser applied to rich text.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// Renderer turns sections into a standalone HTML document. It is safe for concurrent use.
type Renderer struct {
	tmpl        *template.Template
	policy      *bluemonday.Policy
	markdown    goldmark.Markdown
	placeholder string
	defaultLang language.Tag
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		policy:      newRichTextPolicy(),
		markdown:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
		placeholder: DefaultPlaceholderImage,
		defaultLang: language.English,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	tmpl, err := template.New("render").Funcs(template.FuncMap{
		"image": r.image,
		"color": safeColor,
		"stars": clampRating,
		"seq":   seq,
	}).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

type pageView struct {
	Lang        string
	Title       string
	Description string
	Mode        domain.PreviewMode
	Width       string
	Sections    []sectionView
}

type sectionView struct {
	ID       string
	Type     domain.SectionType
	Selected bool
	Body     template.HTML
}

type textView struct {
	HTML      template.HTML
	Alignment string
}

// Render writes the page document to w.
func (r *Renderer) Render(w io.Writer, page Page) error {
	mode := page.Mode
	if _, ok := modeWidths[mode]; !ok {
		mode = domain.DefaultPreviewMode
	}
	view := pageView{
		Lang:        r.lang(page.Project.Locale),
		Title:       page.Project.Name,
		Description: page.Project.Description,
		Mode:        mode,
		Width:       Width(mode),
		Sections:    make([]sectionView, 0, len(page.Sections)),
	}
	if view.Title == "" {
		view.Title = "Preview"
	}
	for _, section := range page.Sections {
		body, err := r.RenderSection(section)
		if err != nil {
			return err
		}
		view.Sections = append(view.Sections, sectionView{
			ID:       section.ID,
			Type:     section.Type,
			Selected: section.ID == page.SelectedID && page.SelectedID != "",
			Body:     body,
		})
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", view); err != nil {
		return fmt.Errorf("render: page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderSection renders the markup of a single section.
func (r *Renderer) RenderSection(section domain.Section) (template.HTML, error) {
	if err := domain.CheckContent(section.Type, section.Content); err != nil {
		return "", fmt.Errorf("render: section %s: %w", section.ID, err)
	}
	var data any = section.Content
	if text, ok := section.Content.(domain.TextContent); ok {
		data = textView{HTML: r.RichText(text.Content), Alignment: text.Alignment}
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(section.Type), data); err != nil {
		return "", fmt.Errorf("render: section %s: %w", section.ID, err)
	}
	return template.HTML(buf.String()), nil
}

// RichText sanitises text content. Input without markup is treated as markdown.
func (r *Renderer) RichText(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if !htmlTag.MatchString(src) {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(src), &buf); err == nil {
			src = buf.String()
		}
	}
	return template.HTML(r.policy.Sanitize(src))
}

func (r *Renderer) image(src string) string {
	if strings.TrimSpace(src) == "" {
		return r.placeholder
	}
	return src
}

func (r *Renderer) lang(locale string) string {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return r.defaultLang.String()
	}
	tag, err := language.Parse(locale)
	if err != nil && !errors.As(err, new(language.ValueError)) {
		return r.defaultLang.String()
	}
	if tag == language.Und {
		return r.defaultLang.String()
	}
	return tag.String()
}

func newRichTextPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption")
	policy.AllowAttrs("class").OnElements("figure", "figcaption", "p", "span")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func safeColor(value string) template.CSS {
	value = strings.TrimSpace(value)
	if hexColor.MatchString(value) {
		return template.CSS(value)
	}
	return template.CSS("transparent")
}

func clampRating(rating int) int {
	return max(0, min(rating, 5))
}

func seq(n int) []int {
	out := make([]int, max(n, 0))
	for i := range out {
		out[i] = i
	}
	return out
}
