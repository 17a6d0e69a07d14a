package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/idle"
)

// SupervisorConfig holds discovery configuration.
type SupervisorConfig struct {
	CreationGrace time.Duration // How long a new window must survive before it is tracked
	Instance      Config
}

// DefaultSupervisorConfig returns default discovery configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		CreationGrace: 250 * time.Millisecond,
		Instance:      DefaultConfig(),
	}
}

// Supervisor discovers main windows of the target application and owns the
// lifecycle of their instances.
type Supervisor struct {
	cfg      SupervisorConfig
	deps     Deps
	registry *Registry
	locator  *Locator
	logger   *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	createSub domain.Subscription
	pending   sync.WaitGroup
}

// NewSupervisor creates a supervisor tracking instances in registry.
func NewSupervisor(cfg SupervisorConfig, deps Deps, registry *Registry) *Supervisor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
		deps.Logger = logger
	}
	// Every instance shares one idle detector.
	if deps.Idle == nil {
		deps.Idle = idle.NewDetector(deps.Input, cfg.Instance.IdleThreshold, logger)
	}
	return &Supervisor{
		cfg:      cfg,
		deps:     deps,
		registry: registry,
		locator:  NewLocator(deps.Windows, deps.Profile.MainWindowClass()),
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Run starts discovery and blocks until ctx is canceled, then tears down
// every instance.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	s.logger.Info("supervisor stopping")
	s.Stop()
	return nil
}

// Start subscribes to window creation and picks up already running processes.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	sub, err := s.deps.Windows.Subscribe(domain.EventFilter{Kind: domain.EventObjectCreate}, s.onWindowCreated)
	if err != nil {
		return fmt.Errorf("failed to subscribe to window creation: %w", err)
	}
	s.mu.Lock()
	s.createSub = sub
	s.mu.Unlock()

	found := s.DiscoverRunning()
	s.logger.Info("supervisor started",
		zap.String("target", s.deps.Profile.ID()),
		zap.Int("instances", found))
	return nil
}

// Stop unsubscribes and closes all instances. Safe to call more than once
// and concurrently with Run.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	sub := s.createSub
	s.createSub = nil
	s.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			s.logger.Debug("failed to unsubscribe from window creation", zap.Error(err))
		}
	}
	s.pending.Wait()
	s.registry.CloseAll()
}

// DiscoverRunning enumerates running target processes and tracks their main
// windows. Returns the number of instances started.
func (s *Supervisor) DiscoverRunning() int {
	started := 0
	for _, name := range s.deps.Profile.ProcessNames() {
		pids, err := s.deps.Processes.FindByName(name)
		if err != nil {
			s.logger.Warn("failed to list processes", zap.String("name", name), zap.Error(err))
			continue
		}

		for _, pid := range pids {
			info, ok, err := s.locator.FindMainWindow(uint32(pid))
			if err != nil {
				s.logger.Warn("failed to locate main window", zap.Int("pid", pid), zap.Error(err))
				continue
			}
			if !ok {
				s.logger.Debug("process has no main window yet", zap.Int("pid", pid))
				continue
			}

			key := domain.InstanceKey{Window: info.Handle, PID: uint32(pid), ThreadID: info.ThreadID}
			if !s.registry.Claim(key) {
				continue
			}
			if s.launch(key) {
				started++
			}
		}
	}
	return started
}

// onWindowCreated runs on the OS callback thread and must not block.
func (s *Supervisor) onWindowCreated(ev domain.WindowEvent) {
	key, ok := s.locator.Identify(ev.Window)
	if !ok {
		return
	}
	if !s.registry.Claim(key) {
		return
	}

	s.pending.Add(1)
	time.AfterFunc(s.cfg.CreationGrace, func() {
		defer s.pending.Done()

		if s.runContext().Err() != nil {
			s.registry.Release(key)
			return
		}
		// The target creates and destroys throwaway windows of the same class.
		if !s.deps.Windows.IsWindow(key.Window) {
			s.logger.Debug("discarding short-lived window", zap.Stringer("key", key))
			s.registry.Release(key)
			return
		}
		s.launch(key)
	})
}

func (s *Supervisor) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Supervisor) launch(key domain.InstanceKey) bool {
	inst, err := NewInstance(key, s.cfg.Instance, s.deps, s.registry.Remove)
	if err != nil {
		s.registry.Release(key)
		s.logger.Warn("cannot monitor instance", zap.Stringer("key", key), zap.Error(err))
		return false
	}

	s.registry.Add(inst)
	if err := inst.Start(s.runContext()); err != nil {
		s.logger.Warn("failed to start instance", zap.Stringer("key", key), zap.Error(err))
		_ = inst.Close()
		return false
	}
	return true
}

// Statuses returns a snapshot of every live instance.
func (s *Supervisor) Statuses() []domain.InstanceStatus {
	instances := s.registry.All()
	out := make([]domain.InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Status())
	}
	return out
}
