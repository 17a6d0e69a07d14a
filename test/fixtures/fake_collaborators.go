package fixtures

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/target"
)

// ReportCall is one ReportActivity invocation.
type ReportCall struct {
	Path    string
	IsWrite bool
}

// FakeReporter records heartbeats.
type FakeReporter struct {
	mu    sync.Mutex
	calls []ReportCall

	// Err is returned by ReportActivity, wrapped in domain.ErrReportingFailed.
	Err   error
	Today string
}

// NewFakeReporter creates a reporter that always succeeds.
func NewFakeReporter() *FakeReporter {
	return &FakeReporter{Today: "1 hr 5 mins"}
}

// ReportActivity implements domain.ActivityReporter.
func (r *FakeReporter) ReportActivity(ctx context.Context, path string, isWrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ReportCall{Path: path, IsWrite: isWrite})
	if r.Err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReportingFailed, r.Err)
	}
	return nil
}

// TodayStatus implements domain.ActivityReporter.
func (r *FakeReporter) TodayStatus(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Today, nil
}

// Calls returns the recorded heartbeats.
func (r *FakeReporter) Calls() []ReportCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReportCall(nil), r.calls...)
}

// FakeOverlay records the last pushed state.
type FakeOverlay struct {
	mu      sync.Mutex
	text    string
	visible bool
}

// SetText implements domain.Overlay.
func (o *FakeOverlay) SetText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = text
}

// SetVisible implements domain.Overlay.
func (o *FakeOverlay) SetVisible(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = visible
}

// Text returns the last text.
func (o *FakeOverlay) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

// Visible returns the last visibility.
func (o *FakeOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// FakeRenameWatcher keeps watch callbacks so tests can fire them.
type FakeRenameWatcher struct {
	mu      sync.Mutex
	watches map[string]func()
	history []string
}

// NewFakeRenameWatcher creates a watcher with no active watches.
func NewFakeRenameWatcher() *FakeRenameWatcher {
	return &FakeRenameWatcher{watches: make(map[string]func())}
}

func watchKey(dir, filename string) string {
	return strings.ToLower(dir + `\` + filename)
}

// Watch implements domain.RenameWatcher.
func (w *FakeRenameWatcher) Watch(dir, filename string, onRenamed func()) (io.Closer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := watchKey(dir, filename)
	w.watches[key] = onRenamed
	w.history = append(w.history, key)
	return &fakeWatch{w: w, key: key}, nil
}

// Fire invokes the callback of an active watch. Returns false if none.
func (w *FakeRenameWatcher) Fire(dir, filename string) bool {
	w.mu.Lock()
	cb, ok := w.watches[watchKey(dir, filename)]
	w.mu.Unlock()
	if ok {
		cb()
	}
	return ok
}

// Active returns the number of live watches.
func (w *FakeRenameWatcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watches)
}

// History returns every watch ever armed, lower-cased.
func (w *FakeRenameWatcher) History() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.history...)
}

type fakeWatch struct {
	w    *FakeRenameWatcher
	key  string
	once sync.Once
}

func (f *fakeWatch) Close() error {
	f.once.Do(func() {
		f.w.mu.Lock()
		defer f.w.mu.Unlock()
		delete(f.w.watches, f.key)
	})
	return nil
}

// FakeProcessManager answers process queries from maps.
type FakeProcessManager struct {
	mu      sync.Mutex
	names   map[int]string
	running map[int]bool
}

// NewFakeProcessManager creates a manager with no processes.
func NewFakeProcessManager() *FakeProcessManager {
	return &FakeProcessManager{
		names:   make(map[int]string),
		running: make(map[int]bool),
	}
}

// Spawn registers a running process.
func (m *FakeProcessManager) Spawn(pid int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[pid] = name
	m.running[pid] = true
}

// Exit marks a process as gone.
func (m *FakeProcessManager) Exit(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[pid] = false
}

// FindByName implements domain.ProcessManager. Like the OS, it ignores case
// and a trailing ".exe".
func (m *FakeProcessManager) FindByName(name string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pids []int
	for pid, n := range m.names {
		if m.running[pid] && target.ImageNameEqual(n, name) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// Name implements domain.ProcessManager.
func (m *FakeProcessManager) Name(pid int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.names[pid]
	if !ok {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return n, nil
}

// IsRunning implements domain.ProcessManager.
func (m *FakeProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[pid]
}

// GetCurrentPID implements domain.ProcessManager.
func (m *FakeProcessManager) GetCurrentPID() int {
	return 1
}

// FakeJournal keeps records in memory.
type FakeJournal struct {
	mu      sync.Mutex
	records []domain.HeartbeatRecord
}

// Record implements domain.HeartbeatJournal.
func (j *FakeJournal) Record(rec domain.HeartbeatRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

// Recent implements domain.HeartbeatJournal.
func (j *FakeJournal) Recent(limit int) ([]domain.HeartbeatRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := append([]domain.HeartbeatRecord(nil), j.records...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Close implements domain.HeartbeatJournal.
func (j *FakeJournal) Close() error {
	return nil
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ domain.ActivityReporter = (*FakeReporter)(nil)
	_ domain.Overlay          = (*FakeOverlay)(nil)
	_ domain.RenameWatcher    = (*FakeRenameWatcher)(nil)
	_ domain.ProcessManager   = (*FakeProcessManager)(nil)
	_ domain.HeartbeatJournal = (*FakeJournal)(nil)
)
