package monitor

import (
	"fmt"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// Locator finds the main window of a process by window class.
type Locator struct {
	windows domain.WindowSystem
	class   string
}

// NewLocator creates a locator matching windows of class.
func NewLocator(windows domain.WindowSystem, class string) *Locator {
	return &Locator{windows: windows, class: class}
}

// FindMainWindow returns the first window of pid with the main window class.
func (l *Locator) FindMainWindow(pid uint32) (domain.WindowInfo, bool, error) {
	windows, err := l.windows.ProcessWindows(pid)
	if err != nil {
		return domain.WindowInfo{}, false, fmt.Errorf("failed to enumerate windows of %d: %w", pid, err)
	}
	for _, w := range windows {
		if w.ClassName == l.class {
			return w, true, nil
		}
	}
	return domain.WindowInfo{}, false, nil
}

// Identify returns the instance key of w if it is a main window.
func (l *Locator) Identify(w domain.WindowHandle) (domain.InstanceKey, bool) {
	class, err := l.windows.ClassName(w)
	if err != nil || class != l.class {
		return domain.InstanceKey{}, false
	}
	tid, pid, err := l.windows.ThreadProcessID(w)
	if err != nil || pid == 0 {
		return domain.InstanceKey{}, false
	}
	return domain.InstanceKey{Window: w, PID: pid, ThreadID: tid}, true
}
