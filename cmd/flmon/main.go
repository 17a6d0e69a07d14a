// Package main is the CLI entry point for flmon.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/config"
	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/internal/infra"
	"github.com/eliteGoblin/focusd/flmon/internal/monitor"
	"github.com/eliteGoblin/focusd/flmon/internal/scanner"
	"github.com/eliteGoblin/focusd/flmon/internal/target"
	"github.com/eliteGoblin/focusd/flmon/internal/title"
	"github.com/eliteGoblin/focusd/flmon/internal/winapi"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flmon",
	Short: "FL Studio activity monitor for WakaTime",
	Long: `flmon watches running FL Studio instances and reports the time you
spend on each project to WakaTime. It finds the open project file by reading
the editor's memory, detects saves, and stops counting while you are away.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor FL Studio in the foreground",
	Long: `Tracks every FL Studio main window, sends heartbeats to wakatime-cli and
keeps the status file up to date. Stops on Ctrl+C.`,
	RunE: runMonitor,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the running monitor is tracking",
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent heartbeats from the journal",
	RunE:  runHistory,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Locate the project file of one FL Studio process",
	Long: `Reads the main window title of the given process and searches its memory
for the open project path, without sending anything to WakaTime.`,
	RunE: runScan,
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's total from WakaTime",
	RunE:  runToday,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported applications",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	cfg          *config.Config
	jsonOutput   bool
	scanPID      int
	historyLimit int
	historySince time.Duration
	historyReset bool
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is "+config.ConfigFile()+")")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of heartbeats to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyReset, "reset", false, "Delete the journal and its key")
	historyCmd.Flags().DurationVar(&historySince, "totals", 0, "Show per-project totals for this period instead (e.g. 168h)")
	scanCmd.Flags().IntVar(&scanPID, "pid", 0, "Process ID of FL Studio")
	_ = scanCmd.MarkFlagRequired("pid")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	loaded, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = loaded
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	pm := infra.NewProcessManager()
	store := infra.NewStatusFile(cfg.DataDir)

	snap, err := store.Read()
	if err != nil {
		return err
	}
	running := snap != nil && pm.IsRunning(snap.PID)

	if jsonOutput {
		out := struct {
			Running bool                   `json:"running"`
			Status  *domain.StatusSnapshot `json:"status,omitempty"`
		}{Running: running}
		if running {
			out.Status = snap
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println("\n=== flmon Status ===")
	if !running {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'flmon run' to start monitoring.")
		return nil
	}

	fmt.Printf("Status: RUNNING (pid %d, %s)\n", snap.PID, snap.AppVersion)
	fmt.Printf("Target: %s\n", snap.Target)
	fmt.Printf("Up: %s\n", time.Since(snap.StartedAt).Round(time.Second))
	fmt.Printf("Updated: %s ago\n", time.Since(snap.UpdatedAt).Round(time.Second))

	fmt.Printf("\nInstances: %d\n", len(snap.Instances))
	for _, inst := range snap.Instances {
		project := inst.Project
		if project == "" {
			project = "(untitled)"
		}
		focus := ""
		if inst.Foreground {
			focus = " [foreground]"
		}
		fmt.Printf("  - pid %d: %s%s\n", inst.PID, project, focus)
		if inst.Path != "" {
			fmt.Printf("      path: %s\n", inst.Path)
		}
		if !inst.LastHeartbeatAt.IsZero() {
			fmt.Printf("      last heartbeat: %s ago\n", time.Since(inst.LastHeartbeatAt).Round(time.Second))
		}
	}
	fmt.Println("====================")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyReset {
		if err := infra.ResetJournal(cfg.DataDir); err != nil {
			return err
		}
		fmt.Println("Heartbeat journal deleted.")
		return nil
	}
	if !infra.NewFileKeyProvider(cfg.DataDir).KeyExists() {
		fmt.Println("No heartbeats recorded yet.")
		return nil
	}
	journal, err := openJournal(cfg.DataDir)
	if err != nil {
		return err
	}
	defer journal.Close()

	if historySince > 0 {
		totals, err := journal.Totals(time.Now().Add(-historySince))
		if err != nil {
			return err
		}
		fmt.Printf("\n=== Projects, last %s ===\n", historySince)
		for _, t := range totals {
			fmt.Printf("%-32s %4d heartbeats  %3d saves  %3d failed  last %s\n",
				t.Project, t.Heartbeats, t.Writes, t.Failures, t.LastAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	records, err := journal.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No heartbeats recorded yet.")
		return nil
	}
	for _, r := range records {
		kind := "edit"
		if r.IsWrite {
			kind = "save"
		}
		line := fmt.Sprintf("%s  %-4s  %-12s  %s", r.At.Format("2006-01-02 15:04:05"), kind, r.Outcome, r.Entity)
		if r.ErrorMsg != "" {
			line += "  (" + r.ErrorMsg + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	profile, err := target.NewRegistry().Get(cfg.Target)
	if err != nil {
		return err
	}
	windows := winapi.NewWindowSystem(logger)

	info, ok, err := monitor.NewLocator(windows, profile.MainWindowClass()).FindMainWindow(uint32(scanPID))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("process %d has no %s main window", scanPID, profile.Name())
	}

	caption, err := windows.Title(info.Handle)
	if err != nil {
		return fmt.Errorf("failed to read window title: %w", err)
	}
	identity := title.NewDecoder(profile.TitleMarker(), profile.UntitledNames()).Decode(caption)
	fmt.Printf("Window title: %q\n", caption)
	if identity == "" {
		fmt.Println("No saved project is open.")
		return nil
	}
	fmt.Printf("Project: %s\n", identity)

	mem, err := winapi.NewMemoryOpener().OpenProcessMemory(uint32(scanPID))
	if err != nil {
		return err
	}
	defer mem.Close()

	sc := scanner.New(infra.NewFileSystemManager(), profile.PathRegionSize(), profile.InitialScanAnchor(), logger)
	start := time.Now()
	path, err := sc.Find(mem, `\`+identity)
	if errors.Is(err, domain.ErrPathNotFound) {
		fmt.Printf("Path not found after scanning %d regions.\n", len(scanner.Regions(mem)))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Path: %s\n", path)
	fmt.Printf("Found in region 0x%x after %s\n", sc.Anchor(), time.Since(start).Round(time.Millisecond))
	return nil
}

func runToday(cmd *cobra.Command, args []string) error {
	reporter, err := newReporter(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	text, err := reporter.TodayStatus(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Println("\n=== Supported Applications ===")

	for _, p := range target.NewRegistry().GetAll() {
		marker := ""
		if p.ID() == cfg.Target {
			marker = " (selected)"
		}
		fmt.Printf("\n[%s] %s%s\n", p.ID(), p.Name(), marker)
		fmt.Printf("  Processes: %s\n", strings.Join(p.ProcessNames(), ", "))
		fmt.Printf("  Main window class: %s\n", p.MainWindowClass())
		fmt.Printf("  Plugin: %s\n", p.PluginName())
	}

	fmt.Println("\n==============================")
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("flmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
