package infra

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// LogOverlay implements domain.Overlay by logging state transitions.
// It stands in for an on-screen label attached to the target window.
type LogOverlay struct {
	window domain.WindowHandle
	logger *zap.Logger

	mu      sync.Mutex
	text    string
	visible bool
}

// NewLogOverlay creates an overlay for window.
func NewLogOverlay(window domain.WindowHandle, logger *zap.Logger) *LogOverlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogOverlay{
		window: window,
		logger: logger.With(zap.Uintptr("hwnd", uintptr(window))),
	}
}

// SetText records today's total. Unchanged text is not logged again.
func (o *LogOverlay) SetText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if text == o.text {
		return
	}
	o.text = text
	o.logger.Info("time today", zap.String("total", text))
}

// SetVisible records whether the label is shown.
func (o *LogOverlay) SetVisible(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if visible == o.visible {
		return
	}
	o.visible = visible
	o.logger.Debug("overlay visibility changed", zap.Bool("visible", visible))
}

// State returns the current text and visibility.
func (o *LogOverlay) State() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text, o.visible
}

// Ensure LogOverlay implements domain.Overlay.
var _ domain.Overlay = (*LogOverlay)(nil)
