package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// StatusSource provides instance snapshots.
type StatusSource interface {
	Statuses() []domain.InstanceStatus
}

// StatusWriter periodically persists the monitor state for `flmon status`.
type StatusWriter struct {
	store    domain.StatusStore
	source   StatusSource
	base     domain.StatusSnapshot
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatusWriter creates a writer. base carries the fields that do not change
// while the monitor runs (PID, version, target, start time).
func NewStatusWriter(store domain.StatusStore, source StatusSource, base domain.StatusSnapshot, interval time.Duration, logger *zap.Logger) *StatusWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusWriter{
		store:    store,
		source:   source,
		base:     base,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run writes a snapshot immediately and then every interval until ctx is
// canceled. The status file is removed on exit.
func (w *StatusWriter) Run(ctx context.Context) error {
	w.write()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := w.store.Clear(); err != nil {
				w.logger.Debug("failed to clear status file", zap.Error(err))
			}
			return nil
		case <-ticker.C:
			w.write()
		}
	}
}

func (w *StatusWriter) write() {
	snap := w.base
	snap.UpdatedAt = w.now()
	snap.Instances = w.source.Statuses()
	if err := w.store.Write(snap); err != nil {
		w.logger.Warn("failed to write status", zap.String("path", w.store.Path()), zap.Error(err))
	}
}
