//go:build windows

package winapi

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// WindowSystem implements domain.WindowSystem with user32.
type WindowSystem struct {
	logger *zap.Logger
}

// NewWindowSystem creates a window system.
func NewWindowSystem(logger *zap.Logger) *WindowSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowSystem{logger: logger}
}

// EnumWindows callbacks are a limited resource, so one is shared and
// enumerations are serialized.
var (
	enumMu      sync.Mutex
	enumResults []windows.HWND
	enumProc    = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumResults = append(enumResults, hwnd)
		return 1
	})
)

func topLevelWindows() ([]windows.HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResults = nil
	if err := windows.EnumWindows(enumProc, nil); err != nil {
		return nil, err
	}
	out := enumResults
	enumResults = nil
	return out, nil
}

// ProcessWindows returns the top-level windows owned by pid.
func (w *WindowSystem) ProcessWindows(pid uint32) ([]domain.WindowInfo, error) {
	all, err := topLevelWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate windows: %w", err)
	}

	var out []domain.WindowInfo
	for _, h := range all {
		var owner uint32
		tid, err := windows.GetWindowThreadProcessId(h, &owner)
		if err != nil || owner != pid {
			continue
		}
		class, err := w.ClassName(domain.WindowHandle(h))
		if err != nil {
			continue
		}
		out = append(out, domain.WindowInfo{
			Handle:    domain.WindowHandle(h),
			PID:       owner,
			ThreadID:  tid,
			ClassName: class,
		})
	}
	return out, nil
}

// ClassName returns the window class of h.
func (w *WindowSystem) ClassName(h domain.WindowHandle) (string, error) {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(windows.HWND(h), &buf[0], int32(len(buf)))
	if err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:n]), nil
}

// Title returns the caption of h.
func (w *WindowSystem) Title(h domain.WindowHandle) (string, error) {
	length, _, _ := procGetWindowTextLengthW.Call(uintptr(h))
	if length == 0 {
		if !w.IsWindow(h) {
			return "", domain.ErrStaleWindow
		}
		return "", nil
	}

	buf := make([]uint16, length+1)
	n, _, err := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 && err != windows.ERROR_SUCCESS {
		return "", fmt.Errorf("GetWindowTextW: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

// IsWindow reports whether h is still a valid window.
func (w *WindowSystem) IsWindow(h domain.WindowHandle) bool {
	return windows.IsWindow(windows.HWND(h))
}

// ThreadProcessID returns the creating thread and owning process of h.
func (w *WindowSystem) ThreadProcessID(h domain.WindowHandle) (uint32, uint32, error) {
	var pid uint32
	tid, err := windows.GetWindowThreadProcessId(windows.HWND(h), &pid)
	if err != nil {
		return 0, 0, err
	}
	return tid, pid, nil
}

// hookHandlers maps hook handles to subscription handlers. The shared
// callback below dispatches through it.
var hookHandlers sync.Map // uintptr -> func(domain.WindowEvent)

var winEventProc = windows.NewCallback(func(hook, event, hwnd, idObject, idChild, idThread, _ uintptr) uintptr {
	if v, ok := hookHandlers.Load(hook); ok {
		v.(func(domain.WindowEvent))(domain.WindowEvent{
			Kind:     kindOf(uint32(event)),
			Window:   domain.WindowHandle(hwnd),
			ObjectID: int32(idObject),
			ChildID:  int32(idChild),
			ThreadID: uint32(idThread),
		})
	}
	return 0
})

func eventCode(kind domain.WindowEventKind) (uint32, error) {
	switch kind {
	case domain.EventObjectCreate:
		return eventObjectCreate, nil
	case domain.EventNameChange:
		return eventObjectNameChange, nil
	case domain.EventForeground:
		return eventSystemForeground, nil
	default:
		return 0, fmt.Errorf("unknown window event kind %d", kind)
	}
}

func kindOf(code uint32) domain.WindowEventKind {
	switch code {
	case eventObjectCreate:
		return domain.EventObjectCreate
	case eventObjectNameChange:
		return domain.EventNameChange
	default:
		return domain.EventForeground
	}
}

// Subscribe installs an out-of-context event hook. The hook lives on a
// dedicated OS thread that pumps messages until the subscription is closed;
// handler runs on that thread.
func (w *WindowSystem) Subscribe(filter domain.EventFilter, handler func(domain.WindowEvent)) (domain.Subscription, error) {
	code, err := eventCode(filter.Kind)
	if err != nil {
		return nil, err
	}

	sub := &hookSubscription{done: make(chan struct{}), logger: w.logger}
	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(sub.done)

		// Create the thread message queue before anyone can post to it.
		var m msg
		procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)
		sub.threadID = windows.GetCurrentThreadId()

		hook, _, callErr := procSetWinEventHook.Call(
			uintptr(code), uintptr(code),
			0,
			winEventProc,
			uintptr(filter.PID), uintptr(filter.ThreadID),
			wineventOutOfContext,
		)
		if hook == 0 {
			ready <- fmt.Errorf("SetWinEventHook(0x%x): %w", code, callErr)
			return
		}
		hookHandlers.Store(hook, handler)
		defer func() {
			procUnhookWinEvent.Call(hook)
			hookHandlers.Delete(hook)
		}()

		ready <- nil
		pumpMessages()
	}()

	if err := <-ready; err != nil {
		<-sub.done
		return nil, err
	}
	return sub, nil
}

func pumpMessages() {
	var m msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			return // WM_QUIT or error
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

type hookSubscription struct {
	threadID  uint32
	done      chan struct{}
	logger    *zap.Logger
	closeOnce sync.Once
}

// Close unhooks and stops the message thread. Must not be called from the
// handler itself.
func (s *hookSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		r, _, callErr := procPostThreadMessageW.Call(uintptr(s.threadID), wmQuit, 0, 0)
		if r == 0 {
			err = fmt.Errorf("PostThreadMessageW: %w", callErr)
			s.logger.Warn("failed to stop event thread", zap.Uint32("tid", s.threadID), zap.Error(callErr))
			return
		}
		<-s.done
	})
	return err
}

var (
	_ domain.WindowSystem = (*WindowSystem)(nil)
	_ domain.Subscription = (*hookSubscription)(nil)
)
