package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/repositories"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type recordedEvent struct {
	event  string
	fields map[string]any
}

type captureLogger struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *captureLogger) log(_ context.Context, event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{event: event, fields: fields})
}

func (l *captureLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.event == event {
			return true
		}
	}
	return false
}

type fixture struct {
	store    *repositories.MemoryStateStore
	sitesRep repositories.SiteRepository
	projects ProjectService
	sites    SiteService
	project  domain.ProjectSummary
	logs     *captureLogger
}

func newFixture(t *testing.T, mutate func(*SiteServiceDeps)) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := newFixedClock()
	store := repositories.NewMemoryStateStore()
	sitesRepo, err := repositories.NewSiteRepository(store)
	if err != nil {
		t.Fatalf("NewSiteRepository: %v", err)
	}
	projectRepo, err := repositories.NewProjectStateRepository(store)
	if err != nil {
		t.Fatalf("NewProjectStateRepository: %v", err)
	}
	projects, err := NewProjectService(ProjectServiceDeps{
		Projects:    projectRepo,
		Sites:       sitesRepo,
		Clock:       clock.Now,
		IDGenerator: sequence("prj_"),
	})
	if err != nil {
		t.Fatalf("NewProjectService: %v", err)
	}
	project, err := projects.CreateProject(ctx, CreateProjectCommand{Name: "Landing"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	logs := &captureLogger{}
	deps := SiteServiceDeps{
		Sites:      sitesRepo,
		Projects:   projects,
		Clock:      clock.Now,
		SectionIDs: sequence("sec_"),
		ItemIDs:    sequence("itm_"),
		Logger:     logs.log,
	}
	if mutate != nil {
		mutate(&deps)
	}
	sites, err := NewSiteService(deps)
	if err != nil {
		t.Fatalf("NewSiteService: %v", err)
	}
	t.Cleanup(func() { _ = sites.Close(context.Background()) })

	return &fixture{
		store:    store,
		sitesRep: sitesRepo,
		projects: projects,
		sites:    sites,
		project:  project,
		logs:     logs,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
