package editor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/espython/website-builder/internal/domain"
)

func TestListHelpers(t *testing.T) {
	items := []domain.SocialLink{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	appended := Append(items, domain.SocialLink{ID: "d"})
	if len(items) != 3 || len(appended) != 4 {
		t.Fatalf("Append modified input or missed item: %d / %d", len(items), len(appended))
	}

	removed, err := RemoveAt(items, 1)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if diff := cmp.Diff([]domain.SocialLink{{ID: "a"}, {ID: "c"}}, removed); diff != "" {
		t.Fatalf("RemoveAt mismatch (-want +got):\n%s", diff)
	}
	if items[1].ID != "b" {
		t.Fatalf("RemoveAt modified input: %+v", items)
	}

	byID, err := RemoveByID(items, "c")
	if err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if len(byID) != 2 || IndexOfID(byID, "c") != -1 {
		t.Fatalf("RemoveByID left item: %+v", byID)
	}
	if _, err := RemoveByID(items, "zz"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	moved, err := MoveAt(items, 0, 2)
	if err != nil {
		t.Fatalf("MoveAt: %v", err)
	}
	if diff := cmp.Diff([]domain.SocialLink{{ID: "b"}, {ID: "c"}, {ID: "a"}}, moved); diff != "" {
		t.Fatalf("MoveAt mismatch (-want +got):\n%s", diff)
	}
	if _, err := MoveAt(items, 0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	back, err := MoveByID(moved, "a", "b")
	if err != nil {
		t.Fatalf("MoveByID: %v", err)
	}
	if diff := cmp.Diff(items, back); diff != "" {
		t.Fatalf("MoveByID mismatch (-want +got):\n%s", diff)
	}

	updated, err := UpdateAt(items, 2, func(l domain.SocialLink) domain.SocialLink {
		l.URL = "https://example.com"
		return l
	})
	if err != nil {
		t.Fatalf("UpdateAt: %v", err)
	}
	if updated[2].URL != "https://example.com" || items[2].URL != "" {
		t.Fatalf("UpdateAt did not copy: %+v / %+v", updated[2], items[2])
	}
	if _, err := UpdateAt(items, -1, func(l domain.SocialLink) domain.SocialLink { return l }); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}
