package idle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// mockInput implements domain.InputSource for testing
type mockInput struct {
	pos       domain.Point
	posErr    error
	lastInput uint32
	inputErr  error
	now       uint32
}

func (m *mockInput) CursorPos() (domain.Point, error) {
	return m.pos, m.posErr
}

func (m *mockInput) LastInputTick() (uint32, error) {
	return m.lastInput, m.inputErr
}

func (m *mockInput) TickCount() uint32 {
	return m.now
}

func TestDetector_FirstPollWithRecentInput(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 10, Y: 10}, lastInput: 1000, now: 2000}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.False(t, d.IsIdle())
}

func TestDetector_StationaryPointerIsIdle(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 10, Y: 10}, lastInput: 1000, now: 1500}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.False(t, d.IsIdle())
	// Same position on the next poll, even though input was recent.
	assert.True(t, d.IsIdle())
}

func TestDetector_MovedPointerResetsStationary(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 10, Y: 10}, lastInput: 1000, now: 1500}
	d := NewDetector(in, DefaultThreshold, nil)

	d.IsIdle()
	in.pos = domain.Point{X: 11, Y: 10}
	assert.False(t, d.IsIdle())
}

func TestDetector_InputOlderThanThreshold(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 1, Y: 1}, lastInput: 1000, now: 1000 + 15001}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.True(t, d.IsIdle())
}

func TestDetector_InputExactlyAtThreshold(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 1, Y: 1}, lastInput: 1000, now: 1000 + 15000}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.False(t, d.IsIdle())
}

func TestDetector_CursorErrorFallsBackToInputTime(t *testing.T) {
	in := &mockInput{posErr: errors.New("desktop locked"), lastInput: 1000, now: 1100}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.False(t, d.IsIdle())
	assert.False(t, d.IsIdle())
}

func TestDetector_InputErrorIsIdle(t *testing.T) {
	in := &mockInput{pos: domain.Point{X: 1, Y: 1}, inputErr: errors.New("failed")}
	d := NewDetector(in, DefaultThreshold, nil)

	assert.True(t, d.IsIdle())
}

func TestSinceTick_Wraparound(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, SinceTick(1500, 1000))
	assert.Equal(t, 200*time.Millisecond, SinceTick(100, 0xFFFFFFFF-99))
}

func TestNewDetector_DefaultThreshold(t *testing.T) {
	d := NewDetector(&mockInput{}, 0, nil)
	assert.Equal(t, DefaultThreshold, d.threshold)
}
