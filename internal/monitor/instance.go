// Package monitor tracks running instances of the target application and
// turns their window, focus, idle and save signals into heartbeats.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/idle"
	"github.com/eliteGoblin/focusd/flmon/internal/scanner"
	"github.com/eliteGoblin/focusd/flmon/internal/target"
	"github.com/eliteGoblin/focusd/flmon/internal/title"
)

const pathSeparator = `\`

// Config holds per-instance timing.
type Config struct {
	HeartbeatInterval   time.Duration // Minimum spacing of periodic heartbeats (default 2 min)
	WriteDebounce       time.Duration // Minimum spacing of write heartbeats (default 1s)
	ProcessPollInterval time.Duration // How often to check the process is alive
	IdleThreshold       time.Duration // Time without input that counts as idle
}

// DefaultConfig returns default instance configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:   target.DefaultHeartbeatInterval,
		WriteDebounce:       time.Second,
		ProcessPollInterval: 5 * time.Second,
		IdleThreshold:       idle.DefaultThreshold,
	}
}

// Deps are the collaborators shared by all instances.
type Deps struct {
	Profile    target.Profile
	Processes  domain.ProcessManager
	Memory     domain.MemoryOpener
	Windows    domain.WindowSystem
	Input      domain.InputSource
	Idle       Idler // shared by all instances; built from Input when nil
	Files      domain.FileSystemManager
	Reporter   domain.ActivityReporter
	Renames    domain.RenameWatcher
	Journal    domain.HeartbeatJournal // optional
	NewOverlay func(domain.WindowHandle) domain.Overlay
	Logger     *zap.Logger
	Now        func() time.Time
}

// Idler reports whether the user is away.
type Idler interface {
	IsIdle() bool
}

// Instance is one tracked main window of a target process.
// All state below mu is only touched while holding mu.
type Instance struct {
	key      domain.InstanceKey
	cfg      Config
	profile  target.Profile
	windows  domain.WindowSystem
	procs    domain.ProcessManager
	reporter domain.ActivityReporter
	renames  domain.RenameWatcher
	journal  domain.HeartbeatJournal
	memory   domain.ProcessMemory
	scanner  *scanner.Scanner
	decoder  *title.Decoder
	idle     Idler
	overlay  domain.Overlay
	logger   *zap.Logger
	now      func() time.Time
	onClose  func(domain.InstanceKey)

	queue *eventQueue

	mu              sync.Mutex
	projectIdentity string
	cached          domain.PathResult
	lastHeartbeatAt time.Time
	lastFileWriteAt time.Time
	isForeground    bool
	watchedPath     string
	renameWatch     io.Closer
	subs            []domain.Subscription
	closed          bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInstance opens the target process for reading.
// Fails with domain.ErrPermissionDenied when the process cannot be opened.
func NewInstance(key domain.InstanceKey, cfg Config, deps Deps, onClose func(domain.InstanceKey)) (*Instance, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.Uint32("pid", key.PID), zap.Uintptr("hwnd", uintptr(key.Window)))

	name, err := deps.Processes.Name(int(key.PID))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process %d: %w", key.PID, err)
	}
	if !target.MatchesProcess(deps.Profile, name) {
		return nil, fmt.Errorf("process %d is %q, not a %s process", key.PID, name, deps.Profile.Name())
	}

	mem, err := deps.Memory.OpenProcessMemory(key.PID)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: pid %d: %v", domain.ErrPermissionDenied, key.PID, err)
	}

	overlay := domain.Overlay(nopOverlay{})
	if deps.NewOverlay != nil {
		overlay = deps.NewOverlay(key.Window)
	}
	idler := deps.Idle
	if idler == nil {
		idler = idle.NewDetector(deps.Input, cfg.IdleThreshold, logger)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Instance{
		key:      key,
		cfg:      cfg,
		profile:  deps.Profile,
		windows:  deps.Windows,
		procs:    deps.Processes,
		reporter: deps.Reporter,
		renames:  deps.Renames,
		journal:  deps.Journal,
		memory:   mem,
		scanner:  scanner.New(deps.Files, deps.Profile.PathRegionSize(), deps.Profile.InitialScanAnchor(), logger),
		decoder:  title.NewDecoder(deps.Profile.TitleMarker(), deps.Profile.UntitledNames()),
		idle:     idler,
		overlay:  overlay,
		logger:   logger,
		now:      now,
		onClose:  onClose,
		queue:    newEventQueue(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Key returns the identity of this instance.
func (i *Instance) Key() domain.InstanceKey {
	return i.key
}

// Start subscribes to window notifications, reads the current title and
// launches the background loops. The instance stops when ctx is done or Close
// is called.
func (i *Instance) Start(ctx context.Context) error {
	if !i.windows.IsWindow(i.key.Window) {
		return fmt.Errorf("%w: %s", domain.ErrStaleWindow, i.key)
	}
	context.AfterFunc(ctx, i.cancel)

	titleSub, err := i.windows.Subscribe(domain.EventFilter{
		Kind:     domain.EventNameChange,
		PID:      i.key.PID,
		ThreadID: i.key.ThreadID,
	}, func(ev domain.WindowEvent) {
		if ev.Window == i.key.Window {
			i.queue.push(message{kind: msgTitleChanged, window: ev.Window})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to title changes: %w", err)
	}

	focusSub, err := i.windows.Subscribe(domain.EventFilter{Kind: domain.EventForeground}, func(ev domain.WindowEvent) {
		i.queue.push(message{kind: msgForeground, window: ev.Window})
	})
	if err != nil {
		_ = titleSub.Close()
		return fmt.Errorf("failed to subscribe to foreground changes: %w", err)
	}

	// The initial title is read with the hooks already installed.
	i.mu.Lock()
	i.subs = append(i.subs, titleSub, focusSub)
	i.onTitleChanged()
	i.mu.Unlock()

	i.wg.Add(3)
	go i.drainLoop()
	go i.timerLoop()
	go i.processLoop()

	i.logger.Info("monitoring instance", zap.Uint32("tid", i.key.ThreadID))
	return nil
}

// drainLoop handles queued messages one at a time under the instance lock.
func (i *Instance) drainLoop() {
	defer i.wg.Done()
	for {
		select {
		case <-i.ctx.Done():
			return
		case <-i.queue.ready:
			for _, m := range i.queue.take() {
				i.dispatch(m)
			}
		}
	}
}

func (i *Instance) timerLoop() {
	defer i.wg.Done()
	ticker := time.NewTicker(i.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.ctx.Done():
			return
		case <-ticker.C:
			i.queue.push(message{kind: msgTick})
		}
	}
}

func (i *Instance) processLoop() {
	defer i.wg.Done()
	ticker := time.NewTicker(i.cfg.ProcessPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.ctx.Done():
			return
		case <-ticker.C:
			if !i.procs.IsRunning(int(i.key.PID)) {
				i.logger.Info("process exited")
				go i.Close()
				return
			}
		}
	}
}

func (i *Instance) dispatch(m message) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}

	switch m.kind {
	case msgTitleChanged:
		i.onTitleChanged()
	case msgForeground:
		i.onForeground(m.window)
	case msgTick:
		i.onTick()
	case msgRenamed:
		i.onRenamed()
	}
}

func (i *Instance) onTitleChanged() {
	if !i.windows.IsWindow(i.key.Window) {
		i.logger.Warn("tracked window is gone", zap.Error(domain.ErrStaleWindow))
		go i.Close()
		return
	}

	text, err := i.windows.Title(i.key.Window)
	if err != nil {
		i.logger.Warn("failed to read window title", zap.Error(err))
		return
	}

	identity := i.decoder.Decode(text)
	if identity == i.projectIdentity {
		return
	}

	i.logger.Info("project changed",
		zap.String("from", i.projectIdentity),
		zap.String("to", identity))

	i.projectIdentity = identity
	i.cached = domain.PathResult{}
	i.disarmWatch()

	if identity == "" {
		i.overlay.SetVisible(false)
		return
	}

	i.overlay.SetVisible(true)
	if _, err := i.resolvePath(); err != nil {
		i.logger.Warn("project path not located yet", zap.Error(err))
	}
}

func (i *Instance) onForeground(w domain.WindowHandle) {
	if w != i.key.Window {
		i.isForeground = false
		return
	}
	i.isForeground = true
	i.emit(false)
}

func (i *Instance) onTick() {
	if !i.isForeground || i.projectIdentity == "" {
		return
	}
	if i.now().Sub(i.lastHeartbeatAt) < i.cfg.HeartbeatInterval {
		return
	}
	i.emit(false)
}

func (i *Instance) onRenamed() {
	now := i.now()
	if now.Sub(i.lastFileWriteAt) < i.cfg.WriteDebounce {
		i.logger.Debug("ignoring duplicate save notification")
		return
	}
	i.emit(true)
	i.lastFileWriteAt = now
}

// emit attempts one heartbeat. Caller holds mu.
func (i *Instance) emit(isWrite bool) {
	if i.projectIdentity == "" {
		return
	}
	if i.idle.IsIdle() {
		i.logger.Debug("user idle, skipping heartbeat")
		return
	}

	path, err := i.resolvePath()
	if err != nil {
		i.logger.Warn("skipping heartbeat", zap.Error(err))
		return
	}

	reportErr := i.reporter.ReportActivity(i.ctx, path, isWrite)
	i.lastHeartbeatAt = i.now()

	rec := domain.HeartbeatRecord{
		At:      i.lastHeartbeatAt,
		PID:     i.key.PID,
		Project: i.projectIdentity,
		Entity:  path,
		IsWrite: isWrite,
		Outcome: domain.OutcomeSent,
	}
	if reportErr != nil {
		rec.Outcome = domain.OutcomeReportFailed
		rec.ErrorMsg = reportErr.Error()
		i.logger.Warn("heartbeat not accepted", zap.String("path", path), zap.Error(reportErr))
	} else {
		i.logger.Debug("heartbeat sent", zap.String("path", path), zap.Bool("write", isWrite))
	}
	i.record(rec)

	text, err := i.reporter.TodayStatus(i.ctx)
	if err != nil {
		i.logger.Debug("failed to fetch today's total", zap.Error(err))
		return
	}
	i.overlay.SetText(text)
}

func (i *Instance) record(rec domain.HeartbeatRecord) {
	if i.journal == nil {
		return
	}
	if err := i.journal.Record(rec); err != nil {
		i.logger.Warn("failed to journal heartbeat", zap.Error(err))
	}
}

// resolvePath returns the cached path or scans memory for it. Caller holds mu.
func (i *Instance) resolvePath() (string, error) {
	if i.cached.Matches(i.projectIdentity) {
		return i.cached.Path, nil
	}

	path, err := i.scanner.Find(i.memory, pathSeparator+i.projectIdentity)
	if err != nil {
		return "", err
	}

	i.cached = domain.PathResult{Identity: i.projectIdentity, Path: path}
	i.armWatch(path)
	return path, nil
}

func (i *Instance) armWatch(path string) {
	if i.watchedPath == path {
		return
	}
	i.disarmWatch()

	dir, file := splitPath(path)
	w, err := i.renames.Watch(dir, file, func() {
		i.queue.push(message{kind: msgRenamed})
	})
	if err != nil {
		i.logger.Warn("failed to watch project file", zap.String("path", path), zap.Error(err))
		return
	}
	i.renameWatch = w
	i.watchedPath = path
}

func (i *Instance) disarmWatch() {
	if i.renameWatch != nil {
		if err := i.renameWatch.Close(); err != nil {
			i.logger.Debug("failed to stop file watch", zap.Error(err))
		}
	}
	i.renameWatch = nil
	i.watchedPath = ""
}

// splitPath splits a Windows path into directory and file name.
func splitPath(path string) (string, string) {
	idx := strings.LastIndexAny(path, `\/`)
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// Status returns a snapshot of the instance state.
func (i *Instance) Status() domain.InstanceStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return domain.InstanceStatus{
		PID:             i.key.PID,
		Window:          uint64(i.key.Window),
		Project:         i.projectIdentity,
		Path:            i.cached.Path,
		Foreground:      i.isForeground,
		LastHeartbeatAt: i.lastHeartbeatAt,
	}
}

// Close tears the instance down. In-flight handlers finish first.
// Safe to call more than once.
func (i *Instance) Close() error {
	var err error
	i.closeOnce.Do(func() {
		i.mu.Lock()
		i.closed = true
		i.cancel()
		for _, s := range i.subs {
			if cerr := s.Close(); cerr != nil {
				i.logger.Debug("failed to unsubscribe", zap.Error(cerr))
			}
		}
		i.subs = nil
		i.disarmWatch()
		i.overlay.SetVisible(false)
		err = i.memory.Close()
		i.mu.Unlock()

		i.wg.Wait()
		i.logger.Info("stopped monitoring instance")

		if i.onClose != nil {
			i.onClose(i.key)
		}
	})
	return err
}

type nopOverlay struct{}

func (nopOverlay) SetText(string)  {}
func (nopOverlay) SetVisible(bool) {}
