package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/editor"
	"github.com/espython/website-builder/internal/repositories"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, fn func()) editor.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

// fire runs every armed timer that has not been stopped.
func (c *manualClock) fire() {
	c.mu.Lock()
	pending := make([]*manualTimer, 0, len(c.timers))
	for _, timer := range c.timers {
		if !timer.stopped {
			timer.stopped = true
			pending = append(pending, timer)
		}
	}
	c.mu.Unlock()
	for _, timer := range pending {
		timer.fn()
	}
}

func newEditorFixture(t *testing.T) (*fixture, EditorService, *manualClock) {
	t.Helper()
	f := newFixture(t, nil)
	clock := &manualClock{}
	editors, err := NewEditorService(EditorServiceDeps{
		Sites:     f.sites,
		AfterFunc: clock.AfterFunc,
		ItemIDs:   sequence("itm_new_"),
		Logger:    f.logs.log,
	})
	if err != nil {
		t.Fatalf("NewEditorService: %v", err)
	}
	return f, editors, clock
}

func TestEditorServiceDebouncedCommit(t *testing.T) {
	ctx := context.Background()
	f, editors, clock := newEditorFixture(t)
	pid := f.project.ID

	section, err := f.sites.AddSection(ctx, pid, domain.SectionTypeHero, nil)
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	draft, err := editors.Open(ctx, pid, section.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if draft.Kind != domain.SectionTypeHero || draft.Dirty {
		t.Fatalf("unexpected initial draft %#v", draft)
	}
	selected, ok, _ := f.sites.Selected(ctx, pid)
	if !ok || selected.ID != section.ID {
		t.Fatalf("opening an editor should select the section")
	}

	draft, err = editors.Apply(ctx, pid, section.ID, editor.Op{Kind: editor.OpSet, Field: "title", Value: json.RawMessage(`"First"`)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	draft, err = editors.Apply(ctx, pid, section.ID, editor.Op{Kind: editor.OpSet, Field: "title", Value: json.RawMessage(`"Second"`)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !draft.Dirty || draft.Commits != 0 {
		t.Fatalf("expected pending draft, got %#v", draft)
	}
	stored, _ := f.sites.Section(ctx, pid, section.ID)
	if stored.Content.(domain.HeroContent).Title == "Second" {
		t.Fatalf("draft must not reach the store before the delay elapses")
	}

	clock.fire()

	draft, err = editors.Draft(ctx, pid, section.ID)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if draft.Dirty || draft.Commits != 1 {
		t.Fatalf("expected one coalesced commit, got %#v", draft)
	}
	stored, _ = f.sites.Section(ctx, pid, section.ID)
	if got := stored.Content.(domain.HeroContent).Title; got != "Second" {
		t.Fatalf("expected committed title Second, got %q", got)
	}
}

func TestEditorServiceSaveAndClose(t *testing.T) {
	ctx := context.Background()
	f, editors, _ := newEditorFixture(t)
	pid := f.project.ID

	section, _ := f.sites.AddSection(ctx, pid, domain.SectionTypeFeatures, nil)
	if _, err := editors.Open(ctx, pid, section.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	draft, err := editors.Apply(ctx, pid, section.ID, editor.Op{Kind: editor.OpAdd, List: "features"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	features := draft.Content.(domain.FeaturesContent).Features
	if last := features[len(features)-1]; last.ID != "itm_new_1" {
		t.Fatalf("expected new item id itm_new_1, got %s", last.ID)
	}

	if err := editors.SaveAndClose(ctx, pid, section.ID); err != nil {
		t.Fatalf("SaveAndClose: %v", err)
	}
	stored, _ := f.sites.Section(ctx, pid, section.ID)
	if got := len(stored.Content.(domain.FeaturesContent).Features); got != len(features) {
		t.Fatalf("expected %d features stored, got %d", len(features), got)
	}
	if _, ok, _ := f.sites.Selected(ctx, pid); ok {
		t.Fatalf("save and close should clear the selection")
	}
	if _, err := editors.Draft(ctx, pid, section.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected draft closed, got %v", err)
	}
}

func TestEditorServiceCloseAllFlushes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	f, editors, _ := newEditorFixture(t)
	pid := f.project.ID

	a, _ := f.sites.AddSection(ctx, pid, domain.SectionTypeText, domain.TextContent{Content: "a"})
	b, _ := f.sites.AddSection(ctx, pid, domain.SectionTypeText, domain.TextContent{Content: "b"})
	for _, id := range []string{a.ID, b.ID} {
		if _, err := editors.Open(ctx, pid, id); err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := editors.SetContent(ctx, pid, id, domain.TextContent{Content: "edited " + id}); err != nil {
			t.Fatalf("SetContent: %v", err)
		}
	}

	if err := editors.CloseAll(ctx); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		stored, _ := f.sites.Section(ctx, pid, id)
		if got := stored.Content.(domain.TextContent).Content; got != "edited "+id {
			t.Fatalf("expected flushed content for %s, got %q", id, got)
		}
	}
	if err := f.sites.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	doc, err := f.sitesRep.Load(ctx, pid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := doc.Sections[1].Content.(domain.TextContent).Content; got != "edited "+b.ID {
		t.Fatalf("expected persisted edit, got %q", got)
	}
}

func TestEditorServiceRejectsMismatchedContent(t *testing.T) {
	ctx := context.Background()
	f, editors, _ := newEditorFixture(t)
	pid := f.project.ID

	section, _ := f.sites.AddSection(ctx, pid, domain.SectionTypeHero, nil)
	if _, err := editors.Open(ctx, pid, section.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := editors.SetContent(ctx, pid, section.ID, domain.TextContent{}); !errors.Is(err, domain.ErrContentMismatch) {
		t.Fatalf("expected content mismatch, got %v", err)
	}
	if _, err := editors.Apply(ctx, pid, section.ID, editor.Op{Kind: editor.OpSet, Field: "nope", Value: json.RawMessage(`1`)}); !errors.Is(err, editor.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
	if err := editors.CloseProject(ctx, pid); err != nil {
		t.Fatalf("CloseProject: %v", err)
	}
	if _, err := editors.Flush(ctx, pid, section.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected draft gone after CloseProject, got %v", err)
	}
}

func TestEditorServiceOpenUnknownSection(t *testing.T) {
	f, editors, _ := newEditorFixture(t)
	if _, err := editors.Open(context.Background(), f.project.ID, "sec_missing"); err == nil {
		t.Fatalf("expected error opening a missing section")
	}
}

func TestEditorServiceFlushAfterProjectDeleteDoesNotRestoreSite(t *testing.T) {
	ctx := context.Background()
	f, editors, _ := newEditorFixture(t)
	pid := f.project.ID

	section, err := f.sites.AddSection(ctx, pid, domain.SectionTypeHero, nil)
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	waitFor(t, func() bool {
		doc, err := f.sitesRep.Load(ctx, pid)
		return err == nil && len(doc.Sections) == 1
	})
	if _, err := editors.Open(ctx, pid, section.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := editors.Apply(ctx, pid, section.ID, editor.Op{Kind: editor.OpSet, Field: "title", Value: json.RawMessage(`"Gone"`)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := f.projects.DeleteProject(ctx, pid); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if err := editors.CloseProject(ctx, pid); err != nil {
		t.Fatalf("CloseProject: %v", err)
	}
	time.Sleep(time.Millisecond)
	f.sites.Forget(ctx, pid)
	if err := f.sites.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if doc, err := f.sitesRep.Load(ctx, pid); !repositories.IsNotFound(err) {
		t.Fatalf("deleted project site was written back: err=%v sections=%d", err, len(doc.Sections))
	}
}
