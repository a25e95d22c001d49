package editor

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrIndexOutOfRange indicates a list index outside the current list.
	ErrIndexOutOfRange = errors.New("editor: index out of range")
	// ErrItemNotFound indicates a list item id absent from the list.
	ErrItemNotFound = errors.New("editor: item not found")
)

// Identified is implemented by list sub-entities that carry their own id.
type Identified interface {
	ItemID() string
}

// Append returns a copy of items with item added at the end.
func Append[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// RemoveAt returns a copy of items without the element at index.
func RemoveAt[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	out := slices.Clone(items)
	return slices.Delete(out, index, index+1), nil
}

// IndexOfID returns the index of the item with the given id, or -1.
func IndexOfID[T Identified](items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool {
		return item.ItemID() == id
	})
}

// RemoveByID returns a copy of items without the item carrying id.
func RemoveByID[T Identified](items []T, id string) ([]T, error) {
	idx := IndexOfID(items, id)
	if idx < 0 {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return RemoveAt(items, idx)
}

// MoveAt returns a copy of items with the element at from spliced into position to.
func MoveAt[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) {
		return items, fmt.Errorf("%w: %d", ErrIndexOutOfRange, from)
	}
	if to < 0 || to >= len(items) {
		return items, fmt.Errorf("%w: %d", ErrIndexOutOfRange, to)
	}
	out := slices.Clone(items)
	if from == to {
		return out, nil
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item), nil
}

// MoveByID moves the item carrying activeID to the position held by overID.
func MoveByID[T Identified](items []T, activeID, overID string) ([]T, error) {
	from := IndexOfID(items, activeID)
	if from < 0 {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, activeID)
	}
	to := IndexOfID(items, overID)
	if to < 0 {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, overID)
	}
	return MoveAt(items, from, to)
}

// UpdateAt returns a copy of items with the element at index replaced by fn's result.
func UpdateAt[T any](items []T, index int, fn func(T) T) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	out := slices.Clone(items)
	out[index] = fn(out[index])
	return out, nil
}
