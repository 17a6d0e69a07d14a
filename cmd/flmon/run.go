package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/flmon/internal/config"
	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/idle"
	"github.com/eliteGoblin/focusd/flmon/internal/infra"
	"github.com/eliteGoblin/focusd/flmon/internal/logging"
	"github.com/eliteGoblin/focusd/flmon/internal/monitor"
	"github.com/eliteGoblin/focusd/flmon/internal/target"
	"github.com/eliteGoblin/focusd/flmon/internal/winapi"
)

func runMonitor(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Options{
		Dir:     cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	defer func() { _ = logger.Sync() }()

	profile, err := target.NewRegistry().Get(cfg.Target)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter, err := newReporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("wakatime-cli unavailable", zap.Error(err))
		return err
	}

	var journal domain.HeartbeatJournal
	if cfg.Journal.Enabled {
		j, err := openJournal(cfg.DataDir)
		if err != nil {
			logger.Warn("heartbeat journal disabled", zap.Error(err))
		} else {
			defer j.Close()
			if cfg.Journal.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -cfg.Journal.RetentionDays)
				if n, err := j.Prune(cutoff); err != nil {
					logger.Warn("failed to prune journal", zap.Error(err))
				} else if n > 0 {
					logger.Info("pruned journal", zap.Int64("removed", n))
				}
			}
			journal = j
		}
	}

	pm := infra.NewProcessManager()
	input := winapi.NewInput()
	deps := monitor.Deps{
		Profile:   profile,
		Processes: pm,
		Memory:    winapi.NewMemoryOpener(),
		Windows:   winapi.NewWindowSystem(logger),
		Input:     input,
		Idle:      idle.NewDetector(input, cfg.Idle.Threshold, logger),
		Files:     infra.NewFileSystemManager(),
		Reporter:  reporter,
		Renames:   infra.NewFSRenameWatcher(logger),
		Journal:   journal,
		NewOverlay: func(w domain.WindowHandle) domain.Overlay {
			return infra.NewLogOverlay(w, logger)
		},
		Logger: logger,
	}

	supCfg := monitor.SupervisorConfig{
		CreationGrace: cfg.Monitor.CreationGrace,
		Instance: monitor.Config{
			HeartbeatInterval:   cfg.Monitor.HeartbeatInterval,
			WriteDebounce:       cfg.Monitor.WriteDebounce,
			ProcessPollInterval: cfg.Monitor.ProcessPollInterval,
			IdleThreshold:       cfg.Idle.Threshold,
		},
	}
	sup := monitor.NewSupervisor(supCfg, deps, monitor.NewRegistry())

	base := domain.StatusSnapshot{
		PID:        pm.GetCurrentPID(),
		AppVersion: Version,
		Target:     profile.ID(),
		StartedAt:  time.Now(),
	}
	writer := monitor.NewStatusWriter(infra.NewStatusFile(cfg.DataDir), sup, base, cfg.Monitor.StatusInterval, logger)

	logger.Info("flmon starting",
		zap.String("version", Version),
		zap.String("target", profile.ID()),
		zap.Int("pid", base.PID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return writer.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("monitor stopped", zap.Error(err))
		return err
	}
	logger.Info("flmon stopped")
	return nil
}

// newReporter makes sure wakatime-cli is installed and returns a reporter
// for the configured target.
func newReporter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*infra.WakaTimeReporter, error) {
	profile, err := target.NewRegistry().Get(cfg.Target)
	if err != nil {
		return nil, err
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	installer := infra.NewCLIInstaller(infra.WakaTimeHome(cfg.WakaTime.Home, userHome), cfg.WakaTime.DownloadURL, logger)
	cliPath, err := installer.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	return infra.NewWakaTimeReporter(infra.WakaTimeConfig{
		CLIPath:    cliPath,
		Category:   cfg.WakaTime.Category,
		PluginName: profile.PluginName(),
		Version:    Version,
		Timeout:    cfg.WakaTime.Timeout,
	}, infra.NewProjectRootResolver(userHome, logger), logger), nil
}

func openJournal(dataDir string) (*infra.Journal, error) {
	key, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load journal key: %w", err)
	}
	return infra.NewJournal(dataDir, key)
}
