package fixtures

import (
	"errors"
	"sync"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// FakeWindow is one window of a FakeWindowSystem.
type FakeWindow struct {
	PID      uint32
	ThreadID uint32
	Class    string
	Title    string
}

type fakeSub struct {
	id      int
	filter  domain.EventFilter
	handler func(domain.WindowEvent)
}

// FakeWindowSystem is an in-memory window manager that delivers events
// synchronously on the caller's goroutine.
type FakeWindowSystem struct {
	mu      sync.Mutex
	windows map[domain.WindowHandle]*FakeWindow
	subs    map[int]*fakeSub
	nextSub int
	closed  int

	// SubscribeErr makes Subscribe fail.
	SubscribeErr error
}

// NewFakeWindowSystem creates an empty window system.
func NewFakeWindowSystem() *FakeWindowSystem {
	return &FakeWindowSystem{
		windows: make(map[domain.WindowHandle]*FakeWindow),
		subs:    make(map[int]*fakeSub),
	}
}

// AddWindow creates a window without notifying subscribers.
func (f *FakeWindowSystem) AddWindow(h domain.WindowHandle, w FakeWindow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := w
	f.windows[h] = &cp
}

// CreateWindow creates a window and delivers an object-create event.
func (f *FakeWindowSystem) CreateWindow(h domain.WindowHandle, w FakeWindow) {
	f.AddWindow(h, w)
	f.Emit(domain.WindowEvent{Kind: domain.EventObjectCreate, Window: h, ThreadID: w.ThreadID})
}

// DestroyWindow removes a window.
func (f *FakeWindowSystem) DestroyWindow(h domain.WindowHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, h)
}

// SetTitle changes a caption and delivers a name-change event.
func (f *FakeWindowSystem) SetTitle(h domain.WindowHandle, title string) {
	f.mu.Lock()
	w, ok := f.windows[h]
	if ok {
		w.Title = title
	}
	f.mu.Unlock()
	if ok {
		f.Emit(domain.WindowEvent{Kind: domain.EventNameChange, Window: h, ThreadID: w.ThreadID})
	}
}

// Focus delivers a foreground event for h.
func (f *FakeWindowSystem) Focus(h domain.WindowHandle) {
	f.Emit(domain.WindowEvent{Kind: domain.EventForeground, Window: h})
}

// Emit delivers ev to every matching subscription.
func (f *FakeWindowSystem) Emit(ev domain.WindowEvent) {
	f.mu.Lock()
	var targets []func(domain.WindowEvent)
	w := f.windows[ev.Window]
	for _, s := range f.subs {
		if s.filter.Kind != ev.Kind {
			continue
		}
		if s.filter.PID != 0 && (w == nil || w.PID != s.filter.PID) {
			continue
		}
		if s.filter.ThreadID != 0 && (w == nil || w.ThreadID != s.filter.ThreadID) {
			continue
		}
		targets = append(targets, s.handler)
	}
	f.mu.Unlock()

	for _, h := range targets {
		h(ev)
	}
}

// ActiveSubscriptions returns the number of open subscriptions.
func (f *FakeWindowSystem) ActiveSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// ProcessWindows implements domain.WindowSystem.
func (f *FakeWindowSystem) ProcessWindows(pid uint32) ([]domain.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WindowInfo
	for h, w := range f.windows {
		if w.PID == pid {
			out = append(out, domain.WindowInfo{Handle: h, PID: w.PID, ThreadID: w.ThreadID, ClassName: w.Class})
		}
	}
	return out, nil
}

// ClassName implements domain.WindowSystem.
func (f *FakeWindowSystem) ClassName(h domain.WindowHandle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return "", errors.New("invalid window handle")
	}
	return w.Class, nil
}

// Title implements domain.WindowSystem.
func (f *FakeWindowSystem) Title(h domain.WindowHandle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return "", errors.New("invalid window handle")
	}
	return w.Title, nil
}

// IsWindow implements domain.WindowSystem.
func (f *FakeWindowSystem) IsWindow(h domain.WindowHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.windows[h]
	return ok
}

// ThreadProcessID implements domain.WindowSystem.
func (f *FakeWindowSystem) ThreadProcessID(h domain.WindowHandle) (uint32, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return 0, 0, errors.New("invalid window handle")
	}
	return w.ThreadID, w.PID, nil
}

// Subscribe implements domain.WindowSystem.
func (f *FakeWindowSystem) Subscribe(filter domain.EventFilter, handler func(domain.WindowEvent)) (domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	f.nextSub++
	s := &fakeSub{id: f.nextSub, filter: filter, handler: handler}
	f.subs[s.id] = s
	return &fakeSubscription{fs: f, id: s.id}, nil
}

type fakeSubscription struct {
	fs   *FakeWindowSystem
	id   int
	once sync.Once
}

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.fs.mu.Lock()
		defer s.fs.mu.Unlock()
		delete(s.fs.subs, s.id)
		s.fs.closed++
	})
	return nil
}

// FakeInput is a controllable pointer and input clock.
type FakeInput struct {
	mu        sync.Mutex
	pos       domain.Point
	lastInput uint32
	now       uint32
}

// NewFakeInput starts with fresh input at tick 1000.
func NewFakeInput() *FakeInput {
	return &FakeInput{lastInput: 1000, now: 1000}
}

// Activity moves the pointer and records an input event at the current tick.
func (f *FakeInput) Activity() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos.X++
	f.lastInput = f.now
}

// Advance moves the tick clock forward.
func (f *FakeInput) Advance(ms uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += ms
}

// CursorPos implements domain.InputSource.
func (f *FakeInput) CursorPos() (domain.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, nil
}

// LastInputTick implements domain.InputSource.
func (f *FakeInput) LastInputTick() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput, nil
}

// TickCount implements domain.InputSource.
func (f *FakeInput) TickCount() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

var (
	_ domain.WindowSystem = (*FakeWindowSystem)(nil)
	_ domain.InputSource  = (*FakeInput)(nil)
)
