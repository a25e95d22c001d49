// Package dnd turns pointer and touch drag gestures over identified items into reorder instructions.
package dnd

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// DefaultMouseDistance is the pointer travel in pixels before a mouse drag activates.
	DefaultMouseDistance = 8.0
	// DefaultTouchDelay is how long a touch must be held before a drag activates.
	DefaultTouchDelay = 250 * time.Millisecond
	// DefaultTouchTolerance is how far in pixels a touch may wander during the hold.
	DefaultTouchTolerance = 5.0
)

var (
	// ErrGestureInProgress is returned when a gesture starts while another is active.
	ErrGestureInProgress = errors.New("dnd: gesture already in progress")
	// ErrNoGesture is returned when an operation needs an active gesture.
	ErrNoGesture = errors.New("dnd: no gesture in progress")
	// ErrUnknownPointer is returned for pointer kinds other than mouse and touch.
	ErrUnknownPointer = errors.New("dnd: unknown pointer kind")
)

// Reorderer receives the single instruction a completed drag produces.
type Reorderer interface {
	Reorder(activeID, overID string) error
}

// ReorderFunc adapts a function to Reorderer.
type ReorderFunc func(activeID, overID string) error

// Reorder calls f.
func (f ReorderFunc) Reorder(activeID, overID string) error {
	return f(activeID, overID)
}

// Pointer identifies the input device driving a gesture.
type Pointer string

const (
	PointerMouse Pointer = "mouse"
	PointerTouch Pointer = "touch"
)

// ParsePointer validates a pointer kind.
func ParsePointer(raw string) (Pointer, error) {
	switch p := Pointer(raw); p {
	case PointerMouse, PointerTouch:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPointer, raw)
	}
}

// Phase is the gesture state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePending  Phase = "pending"
	PhaseDragging Phase = "dragging"
)

// Point is a pointer position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// State is a read-only view of the session, used to draw drop indicators.
type State struct {
	Phase    Phase   `json:"phase"`
	Pointer  Pointer `json:"pointer,omitempty"`
	ActiveID string  `json:"activeId,omitempty"`
	OverID   string  `json:"overId,omitempty"`
}

// Result describes what a drop did.
type Result struct {
	Reordered bool   `json:"reordered"`
	ActiveID  string `json:"activeId,omitempty"`
	OverID    string `json:"overId,omitempty"`
}

// Config holds activation thresholds.
type Config struct {
	MouseDistance  float64
	TouchDelay     time.Duration
	TouchTolerance float64
}

// DefaultConfig returns the standard activation thresholds.
func DefaultConfig() Config {
	return Config{
		MouseDistance:  DefaultMouseDistance,
		TouchDelay:     DefaultTouchDelay,
		TouchTolerance: DefaultTouchTolerance,
	}
}

// Option customises a Session.
type Option func(*Session)

// WithConfig overrides activation thresholds. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		if cfg.MouseDistance > 0 {
			s.cfg.MouseDistance = cfg.MouseDistance
		}
		if cfg.TouchDelay > 0 {
			s.cfg.TouchDelay = cfg.TouchDelay
		}
		if cfg.TouchTolerance > 0 {
			s.cfg.TouchTolerance = cfg.TouchTolerance
		}
	}
}

// WithClock injects the time source used for the touch hold delay.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Session tracks one gesture at a time over a list owned by a Reorderer.
type Session struct {
	cfg       Config
	reorderer Reorderer
	now       func() time.Time

	mu        sync.Mutex
	phase     Phase
	pointer   Pointer
	activeID  string
	origin    Point
	last      Point
	startedAt time.Time
	overID    string
}

// NewSession constructs an idle session bound to r.
func NewSession(r Reorderer, opts ...Option) *Session {
	s := &Session{
		cfg:       DefaultConfig(),
		reorderer: r,
		now:       time.Now,
		phase:     PhaseIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns the current gesture state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Phase: s.phase, Pointer: s.pointer, ActiveID: s.activeID, OverID: s.overID}
}

// Start begins a gesture on activeID. The drag is not recognised until activation.
func (s *Session) Start(pointer Pointer, activeID string, at Point) error {
	if pointer != PointerMouse && pointer != PointerTouch {
		return fmt.Errorf("%w: %q", ErrUnknownPointer, pointer)
	}
	if activeID == "" {
		return errors.New("dnd: active id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return ErrGestureInProgress
	}
	s.phase = PhasePending
	s.pointer = pointer
	s.activeID = activeID
	s.origin = at
	s.last = at
	s.startedAt = s.now()
	s.overID = ""
	return nil
}

// Move reports pointer movement and returns the resulting phase. A touch that strays beyond
// the tolerance before its hold delay elapses is treated as a scroll and abandoned.
func (s *Session) Move(at Point) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.last
	s.last = at
	if s.phase != PhasePending {
		return s.phase
	}
	switch s.pointer {
	case PointerMouse:
		if at.distance(s.origin) >= s.cfg.MouseDistance {
			s.phase = PhaseDragging
		}
	case PointerTouch:
		// The touch was within tolerance up to prev, so a hold that has elapsed activated
		// before this move regardless of where the move lands.
		if s.holdElapsedLocked() && prev.distance(s.origin) <= s.cfg.TouchTolerance {
			s.phase = PhaseDragging
			break
		}
		if at.distance(s.origin) > s.cfg.TouchTolerance {
			s.resetLocked()
		}
	}
	return s.phase
}

// Hold re-evaluates touch activation without movement, for callers polling during a press.
func (s *Session) Hold() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhasePending && s.pointer == PointerTouch && s.holdElapsedLocked() &&
		s.last.distance(s.origin) <= s.cfg.TouchTolerance {
		s.phase = PhaseDragging
	}
	return s.phase
}

// Over records the hovered target. It only affects the drop indicator until Drop.
func (s *Session) Over(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseDragging {
		s.overID = id
	}
}

// Drop ends the gesture. When the drag was activated over a different item the reorder
// instruction is issued; otherwise nothing happens.
func (s *Session) Drop() (Result, error) {
	s.mu.Lock()
	if s.phase == PhaseIdle {
		s.mu.Unlock()
		return Result{}, ErrNoGesture
	}
	if s.phase == PhasePending && s.pointer == PointerTouch && s.holdElapsedLocked() &&
		s.last.distance(s.origin) <= s.cfg.TouchTolerance {
		s.phase = PhaseDragging
	}
	activated := s.phase == PhaseDragging
	activeID, overID := s.activeID, s.overID
	s.resetLocked()
	s.mu.Unlock()

	result := Result{ActiveID: activeID, OverID: overID}
	if !activated || overID == "" || overID == activeID || s.reorderer == nil {
		return result, nil
	}
	if err := s.reorderer.Reorder(activeID, overID); err != nil {
		return result, err
	}
	result.Reordered = true
	return result, nil
}

// Cancel abandons the gesture without issuing anything.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) holdElapsedLocked() bool {
	return s.now().Sub(s.startedAt) >= s.cfg.TouchDelay
}

func (s *Session) resetLocked() {
	s.phase = PhaseIdle
	s.pointer = ""
	s.activeID = ""
	s.overID = ""
	s.origin = Point{}
	s.last = Point{}
	s.startedAt = time.Time{}
}
