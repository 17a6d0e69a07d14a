package infra

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// FSRenameWatcher implements domain.RenameWatcher with fsnotify.
// The target saves by writing a temporary file and renaming it over the
// project, which surfaces as a create (new name) and/or rename (old name)
// event for the project file name.
type FSRenameWatcher struct {
	logger *zap.Logger
}

// NewFSRenameWatcher creates a rename watcher.
func NewFSRenameWatcher(logger *zap.Logger) *FSRenameWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSRenameWatcher{logger: logger}
}

// Watch calls onRenamed whenever filename in dir is renamed into place.
// The callback runs on the watch goroutine and must not block.
func (w *FSRenameWatcher) Watch(dir, filename string, onRenamed func()) (io.Closer, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fw := &fileWatch{
		fsw:      fsw,
		filename: filename,
		onRename: onRenamed,
		logger:   w.logger.With(zap.String("dir", dir), zap.String("file", filename)),
		done:     make(chan struct{}),
	}
	fw.wg.Add(1)
	go fw.loop()
	return fw, nil
}

type fileWatch struct {
	fsw      *fsnotify.Watcher
	filename string
	onRename func()
	logger   *zap.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (f *fileWatch) loop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return

		case event, ok := <-f.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(baseName(event.Name), f.filename) {
				continue
			}
			f.logger.Debug("project file replaced", zap.String("op", event.Op.String()))
			f.onRename()

		case err, ok := <-f.fsw.Errors:
			if !ok {
				return
			}
			f.logger.Warn("file watch error", zap.Error(err))
		}
	}
}

// Close stops the watch. Safe to call more than once.
func (f *fileWatch) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.fsw.Close()
		f.wg.Wait()
	})
	return err
}

// baseName handles both separators so Windows paths work on any host.
func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `\/`); idx >= 0 {
		return path[idx+1:]
	}
	return filepath.Base(path)
}

// Ensure FSRenameWatcher implements domain.RenameWatcher.
var _ domain.RenameWatcher = (*FSRenameWatcher)(nil)
