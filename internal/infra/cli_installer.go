package infra

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCLIDownloadURL is where wakatime-cli release archives live.
	DefaultCLIDownloadURL = "https://github.com/wakatime/wakatime-cli/releases/latest/download"

	cliResourceDir  = ".wakatime"
	downloadTimeout = 5 * time.Minute
	maxArchiveSize  = 200 << 20
)

// ErrUnsupportedPlatform is returned for platforms wakatime-cli has no build for.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// CLISlug returns the release name of wakatime-cli for a platform,
// e.g. "wakatime-cli-windows-amd64".
func CLISlug(goos, goarch string) (string, error) {
	switch goos {
	case "windows", "darwin", "linux":
	default:
		return "", fmt.Errorf("%w: os %s", ErrUnsupportedPlatform, goos)
	}
	switch goarch {
	case "386", "amd64", "arm64", "arm", "riscv64":
	default:
		return "", fmt.Errorf("%w: arch %s", ErrUnsupportedPlatform, goarch)
	}
	return fmt.Sprintf("wakatime-cli-%s-%s", goos, goarch), nil
}

// WakaTimeHome returns the directory holding the .wakatime folder: configured
// (normally $WAKATIME_HOME) when it names an existing directory, else userHome.
func WakaTimeHome(configured, userHome string) string {
	if configured != "" {
		if info, err := os.Stat(configured); err == nil && info.IsDir() {
			return configured
		}
	}
	return userHome
}

// CLIInstaller locates wakatime-cli and downloads it when missing.
type CLIInstaller struct {
	client      *http.Client
	resourceDir string
	baseURL     string
	goos        string
	goarch      string
	runner      CommandRunner
	logger      *zap.Logger
}

// NewCLIInstaller creates an installer for the running platform. home is the
// directory containing .wakatime.
func NewCLIInstaller(home, baseURL string, logger *zap.Logger) *CLIInstaller {
	return NewCLIInstallerWithDeps(home, baseURL, runtime.GOOS, runtime.GOARCH, &http.Client{}, &RealCommandRunner{}, logger)
}

// NewCLIInstallerWithDeps creates an installer with injectable dependencies (for testing).
func NewCLIInstallerWithDeps(home, baseURL, goos, goarch string, client *http.Client, runner CommandRunner, logger *zap.Logger) *CLIInstaller {
	if baseURL == "" {
		baseURL = DefaultCLIDownloadURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIInstaller{
		client:      client,
		resourceDir: filepath.Join(home, cliResourceDir),
		baseURL:     baseURL,
		goos:        goos,
		goarch:      goarch,
		runner:      runner,
		logger:      logger,
	}
}

// ExecPath returns where the CLI binary is expected.
func (c *CLIInstaller) ExecPath() (string, error) {
	slug, err := CLISlug(c.goos, c.goarch)
	if err != nil {
		return "", err
	}
	exe := slug
	if c.goos == "windows" {
		exe += ".exe"
	}
	return filepath.Join(c.resourceDir, exe), nil
}

// Ensure returns the path of a working CLI, downloading it first if needed.
// The CLI must answer --version with exit status 0.
func (c *CLIInstaller) Ensure(ctx context.Context) (string, error) {
	path, err := c.ExecPath()
	if err != nil {
		return "", err
	}
	slug, _ := CLISlug(c.goos, c.goarch)
	c.logger.Info("expected wakatime-cli", zap.String("slug", slug), zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		c.logger.Warn("wakatime-cli not found, downloading", zap.String("path", path))
		url := fmt.Sprintf("%s/%s.zip", c.baseURL, slug)
		if err := c.download(ctx, url, path); err != nil {
			return "", fmt.Errorf("failed to download wakatime-cli (you can install it manually at %s): %w", path, err)
		}
		c.logger.Info("wakatime-cli installed", zap.String("path", path))
	}

	if err := c.runner.Run(ctx, path, "--version"); err != nil {
		return "", fmt.Errorf("wakatime-cli self-check failed: %w", err)
	}
	return path, nil
}

func (c *CLIInstaller) download(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "flmon")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize))
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	return extractFirstEntry(data, destPath)
}

// extractFirstEntry writes the first file of a zip archive to destPath.
func extractFirstEntry(data []byte, destPath string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if len(zr.File) == 0 {
		return errors.New("archive is empty")
	}

	src, err := zr.File[0].Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	tmpPath := destPath + ".download"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
