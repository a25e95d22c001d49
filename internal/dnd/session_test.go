package dnd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingReorderer struct {
	calls [][2]string
	err   error
}

func (r *recordingReorderer) Reorder(activeID, overID string) error {
	r.calls = append(r.calls, [2]string{activeID, overID})
	return r.err
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)}
}

func TestMouseDragActivatesAfterDistance(t *testing.T) {
	r := &recordingReorderer{}
	s := NewSession(r)

	require.NoError(t, s.Start(PointerMouse, "a", Point{X: 0, Y: 0}))
	require.Equal(t, PhasePending, s.Move(Point{X: 3, Y: 4}))
	s.Over("c")
	require.Empty(t, s.State().OverID, "hover before activation must not register")

	require.Equal(t, PhaseDragging, s.Move(Point{X: 6, Y: 8}))
	s.Over("c")
	require.Equal(t, State{Phase: PhaseDragging, Pointer: PointerMouse, ActiveID: "a", OverID: "c"}, s.State())

	result, err := s.Drop()
	require.NoError(t, err)
	require.True(t, result.Reordered)
	require.Equal(t, [][2]string{{"a", "c"}}, r.calls)
	require.Equal(t, PhaseIdle, s.State().Phase)
}

func TestClickWithoutActivationIssuesNothing(t *testing.T) {
	r := &recordingReorderer{}
	s := NewSession(r)

	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	s.Move(Point{X: 1})
	result, err := s.Drop()
	require.NoError(t, err)
	require.False(t, result.Reordered)
	require.Empty(t, r.calls)
}

func TestDropOverSelfOrNothingIssuesNothing(t *testing.T) {
	r := &recordingReorderer{}
	s := NewSession(r)

	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	s.Move(Point{X: 20})
	s.Over("a")
	result, err := s.Drop()
	require.NoError(t, err)
	require.False(t, result.Reordered)

	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	s.Move(Point{X: 20})
	s.Over("b")
	s.Over("")
	result, err = s.Drop()
	require.NoError(t, err)
	require.False(t, result.Reordered)
	require.Empty(t, r.calls)
}

func TestCancelIssuesNothing(t *testing.T) {
	r := &recordingReorderer{}
	s := NewSession(r)

	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	s.Move(Point{Y: 50})
	s.Over("b")
	s.Cancel()

	_, err := s.Drop()
	require.ErrorIs(t, err, ErrNoGesture)
	require.Empty(t, r.calls)
}

func TestTouchRequiresHoldWithinTolerance(t *testing.T) {
	clock := newManualClock()
	r := &recordingReorderer{}
	s := NewSession(r, WithClock(clock.Now))

	require.NoError(t, s.Start(PointerTouch, "a", Point{X: 10, Y: 10}))
	clock.Advance(100 * time.Millisecond)
	require.Equal(t, PhasePending, s.Move(Point{X: 12, Y: 10}))
	require.Equal(t, PhasePending, s.Hold())

	clock.Advance(200 * time.Millisecond)
	require.Equal(t, PhaseDragging, s.Hold())
	s.Move(Point{X: 10, Y: 200})
	s.Over("b")

	result, err := s.Drop()
	require.NoError(t, err)
	require.True(t, result.Reordered)
	require.Equal(t, [][2]string{{"a", "b"}}, r.calls)
}

func TestTouchHeldThenMovedFarActivates(t *testing.T) {
	clock := newManualClock()
	r := &recordingReorderer{}
	s := NewSession(r, WithClock(clock.Now))

	require.NoError(t, s.Start(PointerTouch, "a", Point{}))
	clock.Advance(300 * time.Millisecond)
	require.Equal(t, PhaseDragging, s.Move(Point{X: 40}))
	s.Over("b")

	result, err := s.Drop()
	require.NoError(t, err)
	require.True(t, result.Reordered)
	require.Equal(t, [][2]string{{"a", "b"}}, r.calls)
}

func TestTouchMovingBeforeDelayAbandonsGesture(t *testing.T) {
	clock := newManualClock()
	r := &recordingReorderer{}
	s := NewSession(r, WithClock(clock.Now))

	require.NoError(t, s.Start(PointerTouch, "a", Point{}))
	clock.Advance(50 * time.Millisecond)
	require.Equal(t, PhaseIdle, s.Move(Point{Y: 40}))

	clock.Advance(time.Second)
	require.Equal(t, PhaseIdle, s.Hold())
	_, err := s.Drop()
	require.ErrorIs(t, err, ErrNoGesture)
	require.Empty(t, r.calls)
}

func TestStartWhileActiveFails(t *testing.T) {
	s := NewSession(&recordingReorderer{})
	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	require.ErrorIs(t, s.Start(PointerMouse, "b", Point{}), ErrGestureInProgress)
	require.ErrorIs(t, s.Start("pen", "b", Point{}), ErrUnknownPointer)
}

func TestDropPropagatesReorderError(t *testing.T) {
	boom := errors.New("boom")
	s := NewSession(&recordingReorderer{err: boom}, WithConfig(Config{MouseDistance: 1}))
	require.NoError(t, s.Start(PointerMouse, "a", Point{}))
	s.Move(Point{X: 1})
	s.Over("b")
	result, err := s.Drop()
	require.ErrorIs(t, err, boom)
	require.False(t, result.Reordered)
	require.Equal(t, PhaseIdle, s.State().Phase)
}

func TestReorderFunc(t *testing.T) {
	var got []string
	s := NewSession(ReorderFunc(func(a, o string) error {
		got = append(got, a, o)
		return nil
	}))
	require.NoError(t, s.Start(PointerMouse, "x", Point{}))
	s.Move(Point{X: 100})
	s.Over("y")
	_, err := s.Drop()
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, got)
}
