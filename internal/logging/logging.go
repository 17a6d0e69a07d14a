// Package logging builds the monitor's zap logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LatestLogName is the file the running monitor writes to.
const LatestLogName = "latest.log"

// Options controls where and how much is logged.
type Options struct {
	Dir     string
	Level   string
	Console bool
}

// New builds a JSON logger writing to <dir>/latest.log, rotating the previous
// run's log first. Falls back to zap.NewProduction when the file sink cannot
// be opened.
func New(opts Options) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	if level, err := zap.ParseAtomicLevel(opts.Level); err == nil {
		config.Level = level
	}

	config.OutputPaths = nil
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0700); err == nil {
			latest := filepath.Join(opts.Dir, LatestLogName)
			_, _ = Rotate(latest)
			config.OutputPaths = append(config.OutputPaths, latest)
		}
	}
	if opts.Console || len(config.OutputPaths) == 0 {
		config.OutputPaths = append(config.OutputPaths, "stderr")
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

// Rotate renames an existing log file to YYYY-MM-DD.log, named by its
// modification date, with a -N suffix when that name is taken.
// Returns the new path, or "" when there was nothing to rotate.
func Rotate(latest string) (string, error) {
	info, err := os.Stat(latest)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", os.Remove(latest)
	}

	dir := filepath.Dir(latest)
	day := info.ModTime().Format("2006-01-02")
	dst := filepath.Join(dir, day+".log")
	for n := 1; ; n++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s-%d.log", day, n))
	}

	if err := os.Rename(latest, dst); err != nil {
		return "", fmt.Errorf("failed to rotate %s: %w", latest, err)
	}
	return dst, nil
}
