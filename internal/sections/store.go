// Package sections owns the ordered collection of page sections and the selection pointer.
package sections

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/domain"
)

const metricNamespace = "github.com/espython/website-builder/internal/sections"

var (
	// ErrSectionNotFound is returned when an operation references an id absent from the collection.
	ErrSectionNotFound = errors.New("sections: section not found")
	// ErrInvalidSiteDocument is returned when an imported document does not match the export shape.
	ErrInvalidSiteDocument = errors.New("sections: invalid site document")
	// ErrDuplicateSectionID is returned when a replacement collection repeats an id.
	ErrDuplicateSectionID = errors.New("sections: duplicate section id")
)

// Operation names a mutation in change notifications and metrics.
type Operation string

const (
	OpAdd     Operation = "add"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpMove    Operation = "move"
	OpReorder Operation = "reorder"
	OpSelect  Operation = "select"
	OpReplace Operation = "replace"
	OpImport  Operation = "import"
)

// Snapshot is the state delivered to listeners after a successful mutation.
type Snapshot struct {
	Version    uint64
	Op         Operation
	SectionID  string // section the operation targeted; empty for whole-collection operations
	Sections   []domain.Section
	SelectedID string
}

// Listener receives change notifications. Listeners run outside the store lock and may read the store.
type Listener func(Snapshot)

type storeConfig struct {
	clock     func() time.Time
	newID     func() string
	newItemID func() string
	logger    *zap.Logger
	meter     metric.Meter
	initial   []domain.Section
}

// Option customises Store construction.
type Option func(*storeConfig)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(cfg *storeConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithIDGenerator overrides section id generation.
func WithIDGenerator(gen func() string) Option {
	return func(cfg *storeConfig) {
		if gen != nil {
			cfg.newID = gen
		}
	}
}

// WithItemIDGenerator overrides sub-entity id generation used by sample content.
func WithItemIDGenerator(gen func() string) Option {
	return func(cfg *storeConfig) {
		if gen != nil {
			cfg.newItemID = gen
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *storeConfig) {
		cfg.meter = m
	}
}

// WithSections seeds the store. Invalid seeds are rejected by New.
func WithSections(sections []domain.Section) Option {
	return func(cfg *storeConfig) {
		cfg.initial = sections
	}
}

// Store is the sole owner and mutator of one page's sections.
type Store struct {
	clock     func() time.Time
	newID     func() string
	newItemID func() string
	logger    *zap.Logger

	mutations        metric.Int64Counter
	mutationsEnabled bool

	mu         sync.RWMutex
	sections   []domain.Section
	selectedID string
	version    uint64

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// New constructs an empty store, or one seeded via WithSections.
func New(opts ...Option) (*Store, error) {
	cfg := storeConfig{
		clock:     time.Now,
		newID:     domain.NewSectionID,
		newItemID: domain.NewItemID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	mutations, err := meter.Int64Counter(
		"sections.store.mutations",
		metric.WithDescription("Count of successful section store mutations"),
	)
	if err != nil {
		cfg.logger.Warn("sections: unable to register mutation metric", zap.Error(err))
	}

	s := &Store{
		clock: func() time.Time {
			return cfg.clock().UTC()
		},
		newID:            cfg.newID,
		newItemID:        cfg.newItemID,
		logger:           cfg.logger,
		mutations:        mutations,
		mutationsEnabled: err == nil,
		sections:         []domain.Section{},
		listeners:        make(map[int]Listener),
	}

	if cfg.initial != nil {
		if err := validateSections(cfg.initial); err != nil {
			return nil, err
		}
		s.sections = domain.CloneSections(cfg.initial)
	}
	return s, nil
}

// Sections returns a copy of the ordered collection.
func (s *Store) Sections() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneSections(s.sections)
}

// Len returns the number of sections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sections)
}

// Version increases on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Section returns a copy of the section with the given id.
func (s *Store) Section(id string) (domain.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	return s.sections[idx].Clone(), nil
}

// SelectedID returns the selected section id, or "" when nothing is selected.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Selected returns the selected section.
func (s *Store) Selected() (domain.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return domain.Section{}, false
	}
	idx := s.indexOf(s.selectedID)
	if idx < 0 {
		return domain.Section{}, false
	}
	return s.sections[idx].Clone(), true
}

// AddSection appends a new section with a fresh id and both timestamps set to now.
func (s *Store) AddSection(kind domain.SectionType, content domain.Content) (domain.Section, error) {
	if err := domain.CheckContent(kind, content); err != nil {
		return domain.Section{}, err
	}
	now := s.clock()
	section := domain.Section{
		ID:        s.newID(),
		Type:      kind,
		Content:   domain.CloneContent(content),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sections = append(s.sections, section)
	snap := s.commitLocked(OpAdd, section.ID)
	s.mu.Unlock()

	s.notify(snap)
	return section.Clone(), nil
}

// AddSampleSection appends a section of the given kind with its sample content.
func (s *Store) AddSampleSection(kind domain.SectionType) (domain.Section, error) {
	content, err := domain.SampleContent(kind, s.newItemID)
	if err != nil {
		return domain.Section{}, err
	}
	return s.AddSection(kind, content)
}

// UpdateSection replaces the content of a section wholesale and refreshes its modification time.
func (s *Store) UpdateSection(id string, content domain.Content) (domain.Section, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	current := s.sections[idx]
	if err := domain.CheckContent(current.Type, content); err != nil {
		s.mu.Unlock()
		return domain.Section{}, err
	}
	now := s.clock()
	if now.Before(current.UpdatedAt) {
		now = current.UpdatedAt
	}
	current.Content = domain.CloneContent(content)
	current.UpdatedAt = now
	s.sections[idx] = current
	snap := s.commitLocked(OpUpdate, id)
	s.mu.Unlock()

	s.notify(snap)
	return current.Clone(), nil
}

// DeleteSection removes the section with the given id. Deleting the selected section clears the selection.
func (s *Store) DeleteSection(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	s.sections = slices.Delete(s.sections, idx, idx+1)
	if s.selectedID == id {
		s.selectedID = ""
	}
	snap := s.commitLocked(OpDelete, id)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// MoveSectionUp swaps the section with its predecessor. The first section stays put.
func (s *Store) MoveSectionUp(id string) error {
	return s.moveBy(id, -1)
}

// MoveSectionDown swaps the section with its successor. The last section stays put.
func (s *Store) MoveSectionDown(id string) error {
	return s.moveBy(id, 1)
}

func (s *Store) moveBy(id string, delta int) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	target := idx + delta
	if target < 0 || target >= len(s.sections) {
		s.mu.Unlock()
		return nil
	}
	s.sections[idx], s.sections[target] = s.sections[target], s.sections[idx]
	snap := s.commitLocked(OpMove, id)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// ReorderSections removes activeID and reinserts it at the index overID held before the move.
func (s *Store) ReorderSections(activeID, overID string) error {
	if activeID == overID {
		return nil
	}
	s.mu.Lock()
	from := s.indexOf(activeID)
	to := s.indexOf(overID)
	if from < 0 || to < 0 {
		s.mu.Unlock()
		missing := activeID
		if from >= 0 {
			missing = overID
		}
		return fmt.Errorf("%w: %s", ErrSectionNotFound, missing)
	}
	s.sections = MoveIndex(s.sections, from, to)
	snap := s.commitLocked(OpReorder, activeID)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Reorder lets the store receive drag-and-drop instructions.
func (s *Store) Reorder(activeID, overID string) error {
	return s.ReorderSections(activeID, overID)
}

// SelectSection points the selection at id. An empty id clears the selection.
func (s *Store) SelectSection(id string) error {
	s.mu.Lock()
	if id != "" && s.indexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	if s.selectedID == id {
		s.mu.Unlock()
		return nil
	}
	s.selectedID = id
	snap := s.commitLocked(OpSelect, id)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Replace swaps in a whole collection after validating it.
func (s *Store) Replace(sections []domain.Section) error {
	return s.replace(sections, OpReplace)
}

func (s *Store) replace(sections []domain.Section, op Operation) error {
	if err := validateSections(sections); err != nil {
		return err
	}
	next := domain.CloneSections(sections)
	if next == nil {
		next = []domain.Section{}
	}

	s.mu.Lock()
	s.sections = next
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
	}
	snap := s.commitLocked(op, "")
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Snapshot returns the current state without mutating it.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:    s.version,
		Sections:   domain.CloneSections(s.sections),
		SelectedID: s.selectedID,
	}
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sections {
		if s.sections[i].ID == id {
			return i
		}
	}
	return -1
}

// commitLocked bumps the version and captures the snapshot for listeners. Callers hold s.mu.
func (s *Store) commitLocked(op Operation, sectionID string) Snapshot {
	s.version++
	return Snapshot{
		Version:    s.version,
		Op:         op,
		SectionID:  sectionID,
		Sections:   domain.CloneSections(s.sections),
		SelectedID: s.selectedID,
	}
}

func (s *Store) notify(snap Snapshot) {
	if s.mutationsEnabled {
		s.mutations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", string(snap.Op))))
	}
	s.logger.Debug("sections: mutation",
		zap.String("op", string(snap.Op)),
		zap.Uint64("version", snap.Version),
		zap.Int("sections", len(snap.Sections)),
	)

	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func validateSections(sections []domain.Section) error {
	seen := make(map[string]struct{}, len(sections))
	for i, section := range sections {
		if section.ID == "" {
			return fmt.Errorf("%w: section %d has no id", ErrInvalidSiteDocument, i)
		}
		if _, dup := seen[section.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSectionID, section.ID)
		}
		seen[section.ID] = struct{}{}
		if err := domain.CheckContent(section.Type, section.Content); err != nil {
			return fmt.Errorf("section %s: %w", section.ID, err)
		}
	}
	return nil
}

// MoveIndex removes the element at from and reinserts it at to, shifting the elements in between.
// Out-of-range indexes return the slice unchanged.
func MoveIndex[T any](items []T, from, to int) []T {
	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return items
	}
	item := items[from]
	items = slices.Delete(items, from, from+1)
	return slices.Insert(items, to, item)
}
