// Package idle decides whether the user is away from the keyboard.
package idle

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// DefaultThreshold is how long without input counts as idle.
const DefaultThreshold = 15 * time.Second

// Detector polls pointer position and last input time.
// A pointer that has not moved since the previous poll counts as idle on its own.
type Detector struct {
	input     domain.InputSource
	threshold time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	lastPos domain.Point
	hasPos  bool
}

// NewDetector creates an idle detector.
func NewDetector(input domain.InputSource, threshold time.Duration, logger *zap.Logger) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		input:     input,
		threshold: threshold,
		logger:    logger,
	}
}

// IsIdle polls the OS once. The pointer position is recorded on every call.
func (d *Detector) IsIdle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos, err := d.input.CursorPos()
	if err != nil {
		d.logger.Debug("cursor position unavailable", zap.Error(err))
	} else {
		stationary := d.hasPos && pos == d.lastPos
		d.lastPos = pos
		d.hasPos = true
		if stationary {
			return true
		}
	}

	last, err := d.input.LastInputTick()
	if err != nil {
		// No input information; assume the user is away.
		d.logger.Debug("last input time unavailable", zap.Error(err))
		return true
	}

	return SinceTick(d.input.TickCount(), last) > d.threshold
}

// SinceTick returns the time elapsed between two 32-bit millisecond tick
// counts, accounting for the counter wrapping every ~49.7 days.
func SinceTick(now, last uint32) time.Duration {
	return time.Duration(now-last) * time.Millisecond
}
