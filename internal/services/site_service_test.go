package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/espython/website-builder/internal/catalog"
	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/storage"
	"github.com/espython/website-builder/internal/repositories"
	"github.com/espython/website-builder/internal/sections"
)

type fakeUploader struct {
	calls []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, projectID, fileName string, data []byte) (storage.ExportObject, error) {
	f.calls = append(f.calls, projectID+"/"+fileName)
	if f.err != nil {
		return storage.ExportObject{}, f.err
	}
	return storage.ExportObject{
		Bucket:      "exports",
		Object:      "projects/" + projectID + "/" + fileName,
		DownloadURL: "https://example.test/" + fileName,
	}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.SiteEvent
}

func (f *fakePublisher) PublishSiteEvent(_ context.Context, event domain.SiteEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return "msg", nil
}

func (f *fakePublisher) last() (domain.SiteEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return domain.SiteEvent{}, false
	}
	return f.events[len(f.events)-1], true
}

func sectionIDs(list []domain.Section) []string {
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func TestSiteServiceHydratesFromRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	seeded := domain.Section{ID: "sec_seed", Type: domain.SectionTypeText, Content: domain.TextContent{Content: "hi"}}
	if err := f.sitesRep.Save(ctx, f.project.ID, domain.SiteDocument{Sections: []domain.Section{seeded}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := f.sites.Sections(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if len(list) != 1 || list[0].ID != "sec_seed" {
		t.Fatalf("expected seeded section, got %v", sectionIDs(list))
	}
	if !f.logs.has(siteLoggerEventHydrated) {
		t.Fatalf("expected hydration to be logged")
	}
}

func TestSiteServiceRejectsUnknownProject(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.sites.Sections(context.Background(), "prj_missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected project not found, got %v", err)
	}
}

func TestSiteServiceAutosavesAndPublishes(t *testing.T) {
	ctx := context.Background()
	events := &fakePublisher{}
	f := newFixture(t, func(d *SiteServiceDeps) { d.Events = events })

	added, err := f.sites.AddSection(ctx, f.project.ID, domain.SectionTypeHero, nil)
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if hero, ok := added.Content.(domain.HeroContent); !ok || hero.Title == "" {
		t.Fatalf("expected sample hero content, got %#v", added.Content)
	}

	waitFor(t, func() bool {
		doc, err := f.sitesRep.Load(ctx, f.project.ID)
		return err == nil && len(doc.Sections) == 1
	})
	waitFor(t, func() bool {
		event, ok := events.last()
		return ok && event.SectionID == added.ID
	})

	event, _ := events.last()
	if event.Operation != string(sections.OpAdd) || event.ProjectID != f.project.ID || event.Sections != 1 {
		t.Fatalf("unexpected event %#v", event)
	}

	waitFor(t, func() bool {
		summary, err := f.projects.GetProject(ctx, f.project.ID)
		return err == nil && summary.SectionCount == 1
	})
}

func TestSiteServiceSelectionIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	events := &fakePublisher{}
	f := newFixture(t, func(d *SiteServiceDeps) { d.Events = events })

	added, err := f.sites.AddSection(ctx, f.project.ID, domain.SectionTypeText, domain.TextContent{Content: "a"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	waitFor(t, func() bool { _, ok := events.last(); return ok })

	if err := f.sites.SelectSection(ctx, f.project.ID, added.ID); err != nil {
		t.Fatalf("SelectSection: %v", err)
	}
	selected, ok, err := f.sites.Selected(ctx, f.project.ID)
	if err != nil || !ok || selected.ID != added.ID {
		t.Fatalf("expected %s selected, got %v %v %v", added.ID, selected.ID, ok, err)
	}
	if err := f.sites.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	for _, event := range events.events {
		if event.Operation == string(sections.OpSelect) {
			t.Fatalf("selection must not be persisted, got %#v", event)
		}
	}
}

func TestSiteServiceCloseFlushesPendingChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	for _, kind := range []domain.SectionType{domain.SectionTypeHeader, domain.SectionTypeHero, domain.SectionTypeFooter} {
		if _, err := f.sites.AddSection(ctx, f.project.ID, kind, nil); err != nil {
			t.Fatalf("AddSection(%s): %v", kind, err)
		}
	}
	if err := f.sites.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	doc, err := f.sitesRep.Load(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected the latest snapshot with 3 sections, got %d", len(doc.Sections))
	}
	if _, err := f.sites.Sections(ctx, f.project.ID); !errors.Is(err, ErrSiteServiceClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestSiteServiceForgetDropsCachedStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	if _, err := f.sites.AddSection(ctx, f.project.ID, domain.SectionTypeCTA, nil); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	waitFor(t, func() bool {
		doc, err := f.sitesRep.Load(ctx, f.project.ID)
		return err == nil && len(doc.Sections) == 1
	})

	if err := f.projects.DeleteProject(ctx, f.project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	f.sites.Forget(ctx, f.project.ID)

	if _, err := f.sites.Sections(ctx, f.project.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected deleted project to be gone, got %v", err)
	}
	if _, err := f.sitesRep.Load(ctx, f.project.ID); !repositories.IsNotFound(err) {
		t.Fatalf("expected site document removed, got %v", err)
	}
}

func TestSiteServiceMoveAndReorder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pid := f.project.ID

	var ids []string
	for _, kind := range []domain.SectionType{domain.SectionTypeHeader, domain.SectionTypeHero, domain.SectionTypeFooter} {
		s, err := f.sites.AddSection(ctx, pid, kind, nil)
		if err != nil {
			t.Fatalf("AddSection: %v", err)
		}
		ids = append(ids, s.ID)
	}

	if err := f.sites.MoveSectionUp(ctx, pid, ids[1]); err != nil {
		t.Fatalf("MoveSectionUp: %v", err)
	}
	if err := f.sites.MoveSectionDown(ctx, pid, ids[0]); err != nil {
		t.Fatalf("MoveSectionDown: %v", err)
	}
	list, _ := f.sites.Sections(ctx, pid)
	want := []string{ids[1], ids[2], ids[0]}
	if strings.Join(sectionIDs(list), ",") != strings.Join(want, ",") {
		t.Fatalf("after moves got %v want %v", sectionIDs(list), want)
	}

	if err := f.sites.ReorderSections(ctx, pid, ids[0], ids[1]); err != nil {
		t.Fatalf("ReorderSections: %v", err)
	}
	list, _ = f.sites.Sections(ctx, pid)
	want = []string{ids[0], ids[1], ids[2]}
	if strings.Join(sectionIDs(list), ",") != strings.Join(want, ",") {
		t.Fatalf("after reorder got %v want %v", sectionIDs(list), want)
	}

	if err := f.sites.ReorderSections(ctx, pid, ids[0], "sec_missing"); !errors.Is(err, sections.ErrSectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.sites.DeleteSection(ctx, pid, ids[1]); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	if _, err := f.sites.Section(ctx, pid, ids[1]); !errors.Is(err, sections.ErrSectionNotFound) {
		t.Fatalf("expected deleted section to be missing, got %v", err)
	}
}

func TestSiteServiceApplyTemplate(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	f := newFixture(t, func(d *SiteServiceDeps) { d.Catalog = cat })

	tmpl, err := cat.Template("landing")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	added, err := f.sites.ApplyTemplate(ctx, f.project.ID, "landing")
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	if len(added) != len(tmpl.Sections) {
		t.Fatalf("expected %d sections, got %d", len(tmpl.Sections), len(added))
	}
	for i, section := range added {
		if section.Type != tmpl.Sections[i] {
			t.Fatalf("section %d: expected %s, got %s", i, tmpl.Sections[i], section.Type)
		}
	}

	if _, err := f.sites.ApplyTemplate(ctx, f.project.ID, "nope"); !errors.Is(err, catalog.ErrTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
}

func TestSiteServiceExport(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{}
	f := newFixture(t, func(d *SiteServiceDeps) { d.Uploader = uploader })

	if _, err := f.sites.AddSection(ctx, f.project.ID, domain.SectionTypeText, domain.TextContent{Content: "<p>x</p>"}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	out, err := f.sites.Export(ctx, f.project.ID, ExportOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(out.FileName, "website-") || !strings.HasSuffix(out.FileName, ".json") {
		t.Fatalf("unexpected file name %q", out.FileName)
	}
	if out.Upload != nil || len(uploader.calls) != 0 {
		t.Fatalf("expected no upload without the option")
	}
	var doc struct {
		Sections []json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(out.Data, &doc); err != nil || len(doc.Sections) != 1 {
		t.Fatalf("expected one exported section, got %d (%v)", len(doc.Sections), err)
	}

	out, err = f.sites.Export(ctx, f.project.ID, ExportOptions{Upload: true})
	if err != nil {
		t.Fatalf("Export upload: %v", err)
	}
	if out.Upload == nil || out.Upload.Bucket != "exports" {
		t.Fatalf("expected upload metadata, got %#v", out.Upload)
	}
	if len(uploader.calls) != 1 || uploader.calls[0] != f.project.ID+"/"+out.FileName {
		t.Fatalf("unexpected uploader calls %v", uploader.calls)
	}
}

func TestSiteServiceExportUploadDisabled(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.sites.Export(context.Background(), f.project.ID, ExportOptions{Upload: true})
	if !errors.Is(err, storage.ErrExportsDisabled) {
		t.Fatalf("expected exports disabled, got %v", err)
	}
}

func TestSiteServiceImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *SiteServiceDeps) { d.MaxImportBytes = 512 })
	pid := f.project.ID

	original, err := f.sites.AddSection(ctx, pid, domain.SectionTypeText, domain.TextContent{Content: "keep"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	if _, err := f.sites.Import(ctx, pid, strings.NewReader(`{"sections": 3}`)); !errors.Is(err, sections.ErrInvalidSiteDocument) {
		t.Fatalf("expected invalid document, got %v", err)
	}
	huge := `{"sections":[],"pad":"` + strings.Repeat("x", 600) + `"}`
	if _, err := f.sites.Import(ctx, pid, strings.NewReader(huge)); !errors.Is(err, sections.ErrInvalidSiteDocument) {
		t.Fatalf("expected oversized document to be rejected, got %v", err)
	}
	list, _ := f.sites.Sections(ctx, pid)
	if len(list) != 1 || list[0].ID != original.ID {
		t.Fatalf("failed imports must leave the collection unchanged, got %v", sectionIDs(list))
	}

	doc := `{"sections":[{"id":"sec_a","type":"cta","content":{"title":"Go"}},{"id":"sec_b","type":"text","content":{"content":"b"}}]}`
	imported, err := f.sites.Import(ctx, pid, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if strings.Join(sectionIDs(imported), ",") != "sec_a,sec_b" {
		t.Fatalf("unexpected imported ids %v", sectionIDs(imported))
	}
	if cta, ok := imported[0].Content.(domain.CTAContent); !ok || cta.Title != "Go" {
		t.Fatalf("unexpected imported content %#v", imported[0].Content)
	}
}

func TestSiteServiceSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	got := make(chan sections.Snapshot, 4)
	cancel, err := f.sites.Subscribe(ctx, f.project.ID, func(s sections.Snapshot) { got <- s })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if _, err := f.sites.AddSection(ctx, f.project.ID, domain.SectionTypeContact, nil); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	select {
	case snap := <-got:
		if snap.Op != sections.OpAdd || len(snap.Sections) != 1 {
			t.Fatalf("unexpected snapshot %#v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("listener was not notified")
	}
}
