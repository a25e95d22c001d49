// Package live pushes section changes to websocket clients and accepts drag gestures from them.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/dnd"
	"github.com/espython/website-builder/internal/sections"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultReplyBuffer  = 16
	maxClientMessage    = 4 << 10
)

// ErrHubClosed is returned when a connection arrives after Close.
var ErrHubClosed = errors.New("live: hub closed")

// Sites is the part of the site service the hub needs.
type Sites interface {
	Store(ctx context.Context, projectID string) (*sections.Store, error)
	ReorderSections(ctx context.Context, projectID, activeID, overID string) error
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins. "*" allows any origin.
// Without origins the same-host check applies.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		cleaned := make([]string, 0, len(origins))
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				cleaned = append(cleaned, strings.TrimRight(origin, "/"))
			}
		}
		if len(cleaned) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cleaned, "*") || slices.Contains(cleaned, origin)
		}
	}
}

// WithTimeouts overrides the write deadline and the keepalive window. Pings are sent at 90% of pongWait.
func WithTimeouts(write, pongWait time.Duration) Option {
	return func(h *Hub) {
		if write > 0 {
			h.writeTimeout = write
		}
		if pongWait > 0 {
			h.pongWait = pongWait
		}
	}
}

// WithDragOptions configures the gesture session created for each client.
func WithDragOptions(opts ...dnd.Option) Option {
	return func(h *Hub) {
		h.dragOpts = append(h.dragOpts, opts...)
	}
}

// Hub tracks connected clients per project.
type Hub struct {
	sites        Sites
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	writeTimeout time.Duration
	pongWait     time.Duration
	dragOpts     []dnd.Option

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub constructs a hub over the site service.
func NewHub(sites Sites, opts ...Option) (*Hub, error) {
	if sites == nil {
		return nil, errors.New("live: sites are required")
	}
	h := &Hub{
		sites:        sites,
		logger:       zap.NewNop(),
		writeTimeout: defaultWriteTimeout,
		pongWait:     defaultPongWait,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeProject upgrades the request and serves the project's live channel until the client leaves.
func (h *Hub) ServeProject(w http.ResponseWriter, r *http.Request, projectID string) error {
	store, err := h.sites.Store(r.Context(), projectID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHubClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("live: upgrade failed", zap.String("project_id", projectID), zap.Error(err))
		return nil
	}

	c := newClient(h, conn, projectID)
	if !h.register(c) {
		_ = conn.Close()
		return nil
	}
	defer h.unregister(c)

	c.drag = dnd.NewSession(dnd.ReorderFunc(func(activeID, overID string) error {
		ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
		defer cancel()
		return h.sites.ReorderSections(ctx, projectID, activeID, overID)
	}), h.dragOpts...)

	unsubscribe := store.Subscribe(func(snap sections.Snapshot) {
		c.pushSnapshot(snap)
	})
	defer unsubscribe()
	c.pushSnapshot(store.Snapshot())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writeLoop()
	}()

	h.logger.Debug("live: client connected", zap.String("project_id", projectID))
	c.readLoop()
	c.stop()
	h.logger.Debug("live: client disconnected", zap.String("project_id", projectID))
	return nil
}

// Close disconnects every client and waits for their goroutines to exit.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("live: close: %w", ctx.Err())
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.wg.Done()
}
