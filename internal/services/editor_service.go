package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/editor"
)

const editorLoggerEventCommitFailed = "editor.commit.failed"

// ErrDraftNotFound indicates that no editor session is open for the section.
var ErrDraftNotFound = errors.New("editor: no open draft")

// EditorServiceDeps groups constructor parameters for the editor service.
type EditorServiceDeps struct {
	Sites       SiteService
	CommitDelay time.Duration
	AfterFunc   editor.AfterFunc
	ItemIDs     func() string
	ZapLogger   *zap.Logger
	Logger      Logger
}

type draftKey struct {
	projectID string
	sectionID string
}

type editorService struct {
	sites     SiteService
	delay     time.Duration
	afterFunc editor.AfterFunc
	itemIDs   func() string
	zapLogger *zap.Logger
	logger    Logger

	mu       sync.Mutex
	sessions map[draftKey]*editor.Session
}

var _ EditorService = (*editorService)(nil)

// NewEditorService constructs the editor session manager.
func NewEditorService(deps EditorServiceDeps) (EditorService, error) {
	if deps.Sites == nil {
		return nil, errors.New("editor service: site service is required")
	}
	delay := deps.CommitDelay
	if delay <= 0 {
		delay = editor.DefaultCommitDelay
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	zapLogger := deps.ZapLogger
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &editorService{
		sites:     deps.Sites,
		delay:     delay,
		afterFunc: deps.AfterFunc,
		itemIDs:   deps.ItemIDs,
		zapLogger: zapLogger,
		logger:    logger,
		sessions:  make(map[draftKey]*editor.Session),
	}, nil
}

// Open selects the section and starts editing it. Opening an already open section returns its draft.
func (s *editorService) Open(ctx context.Context, projectID, sectionID string) (Draft, error) {
	key := draftKey{projectID: strings.TrimSpace(projectID), sectionID: strings.TrimSpace(sectionID)}
	store, err := s.sites.Store(ctx, key.projectID)
	if err != nil {
		return Draft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok && !session.Closed() {
		return draftOf(key, session), nil
	}

	opts := []editor.Option{
		editor.WithDelay(s.delay),
		editor.WithLogger(s.zapLogger.With(zap.String("project_id", key.projectID))),
		editor.WithErrorHook(func(err error) {
			s.logger(context.Background(), editorLoggerEventCommitFailed, map[string]any{
				"projectId": key.projectID,
				"sectionId": key.sectionID,
				"error":     err.Error(),
			})
		}),
	}
	if s.afterFunc != nil {
		opts = append(opts, editor.WithAfterFunc(s.afterFunc))
	}
	if s.itemIDs != nil {
		opts = append(opts, editor.WithItemIDGenerator(s.itemIDs))
	}
	session, err := editor.Open(store, key.sectionID, opts...)
	if err != nil {
		return Draft{}, err
	}
	if err := store.SelectSection(key.sectionID); err != nil {
		_ = session.Close()
		return Draft{}, err
	}
	s.sessions[key] = session
	return draftOf(key, session), nil
}

func (s *editorService) Draft(_ context.Context, projectID, sectionID string) (Draft, error) {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return Draft{}, err
	}
	return draftOf(key, session), nil
}

func (s *editorService) Apply(_ context.Context, projectID, sectionID string, ops ...editor.Op) (Draft, error) {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return Draft{}, err
	}
	if err := session.Apply(ops...); err != nil {
		return Draft{}, err
	}
	return draftOf(key, session), nil
}

func (s *editorService) SetContent(_ context.Context, projectID, sectionID string, content domain.Content) (Draft, error) {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return Draft{}, err
	}
	if err := session.SetDraft(content); err != nil {
		return Draft{}, err
	}
	return draftOf(key, session), nil
}

func (s *editorService) Flush(_ context.Context, projectID, sectionID string) (Draft, error) {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return Draft{}, err
	}
	if err := session.Flush(); err != nil {
		return Draft{}, err
	}
	return draftOf(key, session), nil
}

// SaveAndClose commits the draft, clears the selection and ends the session.
func (s *editorService) SaveAndClose(_ context.Context, projectID, sectionID string) error {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return err
	}
	err = session.SaveAndClose()
	if session.Closed() {
		s.remove(key, session)
	}
	return err
}

// Close flushes pending edits and ends the session without touching the selection.
func (s *editorService) Close(_ context.Context, projectID, sectionID string) error {
	key, session, err := s.session(projectID, sectionID)
	if err != nil {
		return err
	}
	err = session.Close()
	s.remove(key, session)
	return err
}

func (s *editorService) CloseProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	var closing []*editor.Session
	for key, session := range s.sessions {
		if key.projectID == projectID {
			closing = append(closing, session)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()
	return closeSessions(closing)
}

// CloseAll flushes every open draft. It runs before the site service is closed on shutdown.
func (s *editorService) CloseAll(context.Context) error {
	s.mu.Lock()
	closing := make([]*editor.Session, 0, len(s.sessions))
	for key, session := range s.sessions {
		closing = append(closing, session)
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	return closeSessions(closing)
}

func (s *editorService) session(projectID, sectionID string) (draftKey, *editor.Session, error) {
	key := draftKey{projectID: strings.TrimSpace(projectID), sectionID: strings.TrimSpace(sectionID)}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok || session.Closed() {
		delete(s.sessions, key)
		return key, nil, fmt.Errorf("%w: %s/%s", ErrDraftNotFound, key.projectID, key.sectionID)
	}
	return key, session, nil
}

func (s *editorService) remove(key draftKey, session *editor.Session) {
	s.mu.Lock()
	if current, ok := s.sessions[key]; ok && current == session {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
}

func closeSessions(sessions []*editor.Session) error {
	var errs []error
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close draft %s: %w", session.SectionID(), err))
		}
	}
	return errors.Join(errs...)
}

func draftOf(key draftKey, session *editor.Session) Draft {
	return Draft{
		ProjectID: key.projectID,
		SectionID: key.sectionID,
		Kind:      session.Kind(),
		Content:   session.Draft(),
		Dirty:     session.Dirty(),
		Commits:   session.Commits(),
		Closed:    session.Closed(),
	}
}
