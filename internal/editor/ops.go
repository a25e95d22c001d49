package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/espython/website-builder/internal/domain"
)

var (
	// ErrInvalidOp indicates a malformed draft operation.
	ErrInvalidOp = errors.New("editor: invalid operation")
	// ErrUnknownField indicates a field name the content kind does not have.
	ErrUnknownField = errors.New("editor: unknown field")
	// ErrUnknownList indicates a list path the content kind does not have.
	ErrUnknownList = errors.New("editor: unknown list")
)

// OpKind names a draft operation.
type OpKind string

const (
	OpSet     OpKind = "set"
	OpAdd     OpKind = "add"
	OpRemove  OpKind = "remove"
	OpMove    OpKind = "move"
	OpSetItem OpKind = "setItem"
)

// Op is one draft edit. Lists are addressed by name; nested lists ("plans.features",
// "linkGroups.links", "menuItems.children") also need the parent item id.
type Op struct {
	Kind   OpKind          `json:"op"`
	Field  string          `json:"field,omitempty"`
	List   string          `json:"list,omitempty"`
	Parent string          `json:"parent,omitempty"`
	Index  *int            `json:"index,omitempty"`
	ID     string          `json:"id,omitempty"`
	To     *int            `json:"to,omitempty"`
	OverID string          `json:"overId,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

type newItemFunc func(newID func() string) any

type listSpec struct {
	newItem newItemFunc
	// strings lists hold plain values without ids.
	strings bool
}

var listSpecs = map[domain.SectionType]map[string]listSpec{
	domain.SectionTypeFeatures: {
		"features": {newItem: func(id func() string) any { return domain.NewFeatureItem(id) }},
	},
	domain.SectionTypePricing: {
		"plans":          {newItem: func(id func() string) any { return domain.NewPricingPlan(id) }},
		"plans.features": {newItem: func(func() string) any { return "New feature" }, strings: true},
	},
	domain.SectionTypeTestimonials: {
		"testimonials": {newItem: func(id func() string) any { return domain.NewTestimonial(id) }},
	},
	domain.SectionTypeGallery: {
		"items": {newItem: func(id func() string) any { return domain.NewGalleryItem(id) }},
	},
	domain.SectionTypeHeader: {
		"menuItems":          {newItem: func(id func() string) any { return domain.NewMenuItem(id) }},
		"menuItems.children": {newItem: func(id func() string) any { return domain.NewMenuItem(id) }},
	},
	domain.SectionTypeFooter: {
		"linkGroups":       {newItem: func(id func() string) any { return domain.NewFooterLinkGroup(id) }},
		"linkGroups.links": {newItem: func(id func() string) any { return domain.NewFooterLink(id) }},
		"socialLinks":      {newItem: func(id func() string) any { return domain.NewSocialLink(id) }},
	},
}

// Lists returns the list paths editable for a content kind.
func Lists(kind domain.SectionType) []string {
	specs := listSpecs[kind]
	out := make([]string, 0, len(specs))
	for name := range specs {
		out = append(out, name)
	}
	return out
}

type object = map[string]any

// ApplyOps applies ops in order to content and returns the edited copy. content is never modified.
func ApplyOps(content domain.Content, newID func() string, ops ...Op) (domain.Content, error) {
	if content == nil {
		return nil, fmt.Errorf("%w: no content", ErrInvalidOp)
	}
	if newID == nil {
		newID = domain.NewItemID
	}
	if len(ops) == 0 {
		return domain.CloneContent(content), nil
	}
	kind := content.Kind()

	doc, err := toObject(content)
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		if err := applyOp(kind, doc, newID, op); err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode draft: %v", ErrInvalidOp, err)
	}
	edited, err := domain.DecodeContent(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOp, err)
	}
	return edited, nil
}

func applyOp(kind domain.SectionType, doc object, newID func() string, op Op) error {
	switch op.Kind {
	case OpSet:
		return setField(doc, op.Field, op.Value)
	case OpAdd, OpRemove, OpMove, OpSetItem:
		spec, ok := listSpecs[kind][op.List]
		if !ok {
			return fmt.Errorf("%w: %q for %s", ErrUnknownList, op.List, kind)
		}
		container, key, err := resolveList(doc, op.List, op.Parent)
		if err != nil {
			return err
		}
		items, _ := container[key].([]any)
		items, err = applyListOp(items, spec, newID, op)
		if err != nil {
			return err
		}
		container[key] = items
		return nil
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOp, op.Kind)
	}
}

func applyListOp(items []any, spec listSpec, newID func() string, op Op) ([]any, error) {
	switch op.Kind {
	case OpAdd:
		item, err := toGeneric(spec.newItem(newID))
		if err != nil {
			return nil, err
		}
		if len(op.Value) > 0 {
			if item, err = overlay(item, op.Value); err != nil {
				return nil, err
			}
		}
		return Append(items, item), nil
	case OpRemove:
		if op.Index != nil {
			return RemoveAt(items, *op.Index)
		}
		if spec.strings || op.ID == "" {
			return nil, fmt.Errorf("%w: remove needs index or id", ErrInvalidOp)
		}
		kept, err := RemoveByID(asIdentified(items), op.ID)
		return fromIdentified(kept), err
	case OpMove:
		if op.Index != nil && op.To != nil {
			return MoveAt(items, *op.Index, *op.To)
		}
		if spec.strings || op.ID == "" || op.OverID == "" {
			return nil, fmt.Errorf("%w: move needs index and to, or id and overId", ErrInvalidOp)
		}
		moved, err := MoveByID(asIdentified(items), op.ID, op.OverID)
		return fromIdentified(moved), err
	case OpSetItem:
		index, err := itemIndex(items, spec, op)
		if err != nil {
			return nil, err
		}
		return UpdateAtErr(items, index, func(item any) (any, error) {
			if op.Field == "" {
				if !spec.strings {
					return nil, fmt.Errorf("%w: setItem needs a field", ErrInvalidOp)
				}
				var value any
				if err := json.Unmarshal(op.Value, &value); err != nil {
					return nil, fmt.Errorf("%w: value: %v", ErrInvalidOp, err)
				}
				return value, nil
			}
			fields, ok := item.(object)
			if !ok {
				return nil, fmt.Errorf("%w: item %d has no fields", ErrInvalidOp, index)
			}
			if op.Field == "id" {
				return nil, fmt.Errorf("%w: item ids are read-only", ErrInvalidOp)
			}
			return fields, setField(fields, op.Field, op.Value)
		})
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidOp, op.Kind)
	}
}

func itemIndex(items []any, spec listSpec, op Op) (int, error) {
	if op.Index != nil {
		if *op.Index < 0 || *op.Index >= len(items) {
			return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, *op.Index)
		}
		return *op.Index, nil
	}
	if spec.strings || op.ID == "" {
		return 0, fmt.Errorf("%w: item needs index or id", ErrInvalidOp)
	}
	idx := IndexOfID(asIdentified(items), op.ID)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", ErrItemNotFound, op.ID)
	}
	return idx, nil
}

// UpdateAtErr is UpdateAt for edits that can fail.
func UpdateAtErr[T any](items []T, index int, fn func(T) (T, error)) ([]T, error) {
	var editErr error
	out, err := UpdateAt(items, index, func(item T) T {
		updated, err := fn(item)
		if err != nil {
			editErr = err
			return item
		}
		return updated
	})
	if err != nil {
		return items, err
	}
	if editErr != nil {
		return items, editErr
	}
	return out, nil
}

// resolveList finds the map holding the addressed list and the list's key within it.
func resolveList(doc object, path, parentID string) (object, string, error) {
	parentList, child, nested := strings.Cut(path, ".")
	if !nested {
		return doc, path, nil
	}
	if parentID == "" {
		return nil, "", fmt.Errorf("%w: %s needs a parent id", ErrInvalidOp, path)
	}
	parents, _ := doc[parentList].([]any)
	idx := IndexOfID(asIdentified(parents), parentID)
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrItemNotFound, parentID)
	}
	parent, ok := parents[idx].(object)
	if !ok {
		return nil, "", fmt.Errorf("%w: parent %s has no fields", ErrInvalidOp, parentID)
	}
	return parent, child, nil
}

func setField(fields object, name string, raw json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidOp)
	}
	if _, ok := fields[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: value is required for %q", ErrInvalidOp, name)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("%w: value for %q: %v", ErrInvalidOp, name, err)
	}
	fields[name] = value
	return nil
}

func overlay(item any, raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: value: %v", ErrInvalidOp, err)
	}
	base, isObject := item.(object)
	patch, patchIsObject := value.(object)
	if !isObject || !patchIsObject {
		return value, nil
	}
	for key, v := range patch {
		if key == "id" {
			continue
		}
		if _, ok := base[key]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		base[key] = v
	}
	return base, nil
}

func toObject(content domain.Content) (object, error) {
	generic, err := toGeneric(content)
	if err != nil {
		return nil, err
	}
	doc, ok := generic.(object)
	if !ok {
		return nil, fmt.Errorf("%w: content is not an object", ErrInvalidOp)
	}
	return doc, nil
}

func toGeneric(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrInvalidOp, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidOp, err)
	}
	return out, nil
}

type genericItem struct {
	value any
}

func (g genericItem) ItemID() string {
	fields, ok := g.value.(object)
	if !ok {
		return ""
	}
	id, _ := fields["id"].(string)
	return id
}

func asIdentified(items []any) []genericItem {
	out := make([]genericItem, len(items))
	for i, item := range items {
		out[i] = genericItem{value: item}
	}
	return out
}

func fromIdentified(items []genericItem) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item.value
	}
	return out
}
