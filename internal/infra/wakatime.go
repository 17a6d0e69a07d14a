package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// DefaultCategory is the WakaTime category closest to music production.
const DefaultCategory = "designing"

// WakaTimeConfig configures the reporter.
type WakaTimeConfig struct {
	CLIPath    string        // wakatime-cli executable
	Category   string        // Heartbeat category (default "designing")
	PluginName string        // Editor name reported in --plugin, e.g. "flstudio"
	Version    string        // flmon version reported in --plugin
	Timeout    time.Duration // Per-invocation limit
}

// WakaTimeReporter implements domain.ActivityReporter by invoking wakatime-cli.
type WakaTimeReporter struct {
	cfg    WakaTimeConfig
	runner CommandRunner
	roots  *ProjectRootResolver
	logger *zap.Logger
}

// NewWakaTimeReporter creates a reporter. roots may be nil, in which case
// wakatime-cli picks the project name itself.
func NewWakaTimeReporter(cfg WakaTimeConfig, roots *ProjectRootResolver, logger *zap.Logger) *WakaTimeReporter {
	return NewWakaTimeReporterWithDeps(cfg, roots, &RealCommandRunner{}, logger)
}

// NewWakaTimeReporterWithDeps creates a reporter with an injectable runner (for testing).
func NewWakaTimeReporterWithDeps(cfg WakaTimeConfig, roots *ProjectRootResolver, runner CommandRunner, logger *zap.Logger) *WakaTimeReporter {
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WakaTimeReporter{cfg: cfg, runner: runner, roots: roots, logger: logger}
}

// ReportActivity sends one heartbeat for path.
// Fails with domain.ErrReportingFailed when the CLI exits non-zero.
func (r *WakaTimeReporter) ReportActivity(ctx context.Context, path string, isWrite bool) error {
	args := r.heartbeatArgs(path, isWrite)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.runner.Run(ctx, r.cfg.CLIPath, args...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReportingFailed, err)
	}
	return nil
}

func (r *WakaTimeReporter) heartbeatArgs(path string, isWrite bool) []string {
	args := []string{
		"--entity", path,
		"--category", r.cfg.Category,
		"--plugin", fmt.Sprintf("%s wakatime-flstudio/%s", r.cfg.PluginName, r.cfg.Version),
	}
	if isWrite {
		args = append(args, "--write")
	}
	if r.roots != nil {
		if project := r.roots.Resolve(path); project != "" {
			args = append(args, "--project", project)
		}
	}
	return args
}

// TodayStatus returns today's total for the configured category, e.g.
// "1 hr 5 mins".
func (r *WakaTimeReporter) TodayStatus(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	out, err := r.runner.Output(ctx, r.cfg.CLIPath, "--today")
	if err != nil {
		return "", fmt.Errorf("failed to query today's total: %w", err)
	}
	return parseToday(string(out), r.cfg.Category), nil
}

// parseToday extracts the time of category from `wakatime-cli --today` output,
// which looks like "1 hr 5 mins Designing, 20 mins Coding".
func parseToday(output, category string) string {
	for _, part := range strings.Split(output, ",") {
		part = strings.TrimSpace(part)
		if len(part) > len(category) && strings.EqualFold(part[len(part)-len(category):], category) {
			return strings.TrimSpace(part[:len(part)-len(category)])
		}
	}
	return "0 hrs 0 mins"
}

// Ensure WakaTimeReporter implements domain.ActivityReporter.
var _ domain.ActivityReporter = (*WakaTimeReporter)(nil)
