// Package editor implements per-section draft editing with debounced commits.
package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/domain"
)

// DefaultCommitDelay is the idle time after the last change before a draft is committed.
const DefaultCommitDelay = 500 * time.Millisecond

// ErrEditorClosed is returned by operations on a closed session.
var ErrEditorClosed = errors.New("editor: session closed")

// Target is the store an editor reads from and commits into.
type Target interface {
	Section(id string) (domain.Section, error)
	UpdateSection(id string, content domain.Content) (domain.Section, error)
	SelectSection(id string) error
}

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type sessionConfig struct {
	delay     time.Duration
	afterFunc AfterFunc
	newItemID func() string
	logger    *zap.Logger
	onCommit  func(domain.Section)
	onError   func(error)
}

// Option customises a Session.
type Option func(*sessionConfig)

// WithDelay overrides the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(cfg *sessionConfig) {
		if d > 0 {
			cfg.delay = d
		}
	}
}

// WithAfterFunc replaces the timer implementation.
func WithAfterFunc(fn AfterFunc) Option {
	return func(cfg *sessionConfig) {
		if fn != nil {
			cfg.afterFunc = fn
		}
	}
}

// WithItemIDGenerator overrides ids assigned to list items added through ops.
func WithItemIDGenerator(gen func() string) Option {
	return func(cfg *sessionConfig) {
		if gen != nil {
			cfg.newItemID = gen
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *sessionConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCommitHook registers a callback invoked after each successful commit.
func WithCommitHook(fn func(domain.Section)) Option {
	return func(cfg *sessionConfig) {
		cfg.onCommit = fn
	}
}

// WithErrorHook registers a callback for commits triggered by the timer that fail.
func WithErrorHook(fn func(error)) Option {
	return func(cfg *sessionConfig) {
		cfg.onError = fn
	}
}

// Session holds the draft for one section. Changes touch only the draft; the draft reaches the
// target after the debounce delay, on Flush, SaveAndClose or Close.
type Session struct {
	target    Target
	sectionID string
	kind      domain.SectionType
	cfg       sessionConfig

	mu         sync.Mutex
	draft      domain.Content
	dirty      bool
	timer      Timer
	generation uint64
	closed     bool
	commits    int
}

// Open starts a session on the section, initialising the draft from its current content.
func Open(target Target, sectionID string, opts ...Option) (*Session, error) {
	if target == nil {
		return nil, errors.New("editor: target is required")
	}
	cfg := sessionConfig{
		delay:     DefaultCommitDelay,
		afterFunc: realAfterFunc,
		newItemID: domain.NewItemID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	section, err := target.Section(sectionID)
	if err != nil {
		return nil, err
	}
	return &Session{
		target:    target,
		sectionID: section.ID,
		kind:      section.Type,
		cfg:       cfg,
		draft:     domain.CloneContent(section.Content),
	}, nil
}

// SectionID returns the edited section id.
func (s *Session) SectionID() string {
	return s.sectionID
}

// Kind returns the edited section type.
func (s *Session) Kind() domain.SectionType {
	return s.kind
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() domain.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneContent(s.draft)
}

// Dirty reports whether the draft has uncommitted changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Commits returns how many commits reached the target.
func (s *Session) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// SetDraft replaces the draft and re-arms the commit timer.
func (s *Session) SetDraft(content domain.Content) error {
	if err := domain.CheckContent(s.kind, content); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditorClosed
	}
	s.draft = domain.CloneContent(content)
	s.dirty = true
	s.armLocked()
	return nil
}

// Change edits the draft through fn and re-arms the commit timer.
func (s *Session) Change(fn func(domain.Content) (domain.Content, error)) error {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditorClosed
	}
	next, err := fn(domain.CloneContent(s.draft))
	if err != nil {
		return err
	}
	if err := domain.CheckContent(s.kind, next); err != nil {
		return err
	}
	s.draft = next
	s.dirty = true
	s.armLocked()
	return nil
}

// Apply runs draft operations and re-arms the commit timer.
func (s *Session) Apply(ops ...Op) error {
	return s.Change(func(current domain.Content) (domain.Content, error) {
		return ApplyOps(current, s.cfg.newItemID, ops...)
	})
}

// ListReorder moves one sub-list entry of the draft over another. It satisfies the
// drag-and-drop Reorderer contract.
type ListReorder struct {
	session *Session
	list    string
	parent  string
}

// ListReorderer binds drag-and-drop reordering to a sub-list of the draft. Nested lists
// need the parent item id.
func (s *Session) ListReorderer(list, parent string) ListReorder {
	return ListReorder{session: s, list: list, parent: parent}
}

func (l ListReorder) Reorder(activeID, overID string) error {
	if activeID == overID {
		return nil
	}
	return l.session.Apply(Op{Kind: OpMove, List: l.list, Parent: l.parent, ID: activeID, OverID: overID})
}

// Flush commits a pending draft immediately.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditorClosed
	}
	if !s.dirty {
		s.disarmLocked()
		return nil
	}
	return s.commitLocked()
}

// SaveAndClose commits the draft, clears the selection and closes the session.
func (s *Session) SaveAndClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditorClosed
	}
	if err := s.commitLocked(); err != nil {
		return err
	}
	s.closed = true
	if err := s.target.SelectSection(""); err != nil {
		return fmt.Errorf("editor: clear selection: %w", err)
	}
	return nil
}

// Close flushes pending edits and disarms the timer. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	var err error
	if s.dirty {
		err = s.commitLocked()
	}
	s.disarmLocked()
	s.closed = true
	return err
}

func (s *Session) armLocked() {
	s.disarmLocked()
	gen := s.generation
	s.timer = s.cfg.afterFunc(s.cfg.delay, func() {
		s.fire(gen)
	})
}

// disarmLocked stops the pending timer and invalidates callbacks already in flight.
func (s *Session) disarmLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || !s.dirty {
		return
	}
	s.timer = nil
	if err := s.commitLocked(); err != nil {
		s.cfg.logger.Warn("editor: debounced commit failed",
			zap.String("section_id", s.sectionID),
			zap.Error(err),
		)
		if s.cfg.onError != nil {
			s.cfg.onError(err)
		}
	}
}

func (s *Session) commitLocked() error {
	s.disarmLocked()
	section, err := s.target.UpdateSection(s.sectionID, domain.CloneContent(s.draft))
	if err != nil {
		return err
	}
	s.dirty = false
	s.commits++
	if s.cfg.onCommit != nil {
		s.cfg.onCommit(section)
	}
	return nil
}
