package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"panelsmith/internal/analysis"
	"panelsmith/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem backing path has at least minBytes
// available to unprivileged writes.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %d MiB free, need %d MiB)", path, free>>20, minBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))}
}

// CheckAnalysisConfig validates the analysis endpoint configuration without
// touching the network.
func CheckAnalysisConfig(cfg config.Analysis) Result {
	const name = "Analysis endpoint"
	if strings.TrimSpace(cfg.Model) == "" {
		return Result{Name: name, Detail: "model missing"}
	}
	host, problem := checkEndpoint(cfg.BaseURL)
	if problem != "" {
		return Result{Name: name, Detail: problem}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Model, host)}
}

// CheckSynthesisConfig validates the synthesis endpoint configuration. An
// empty base URL selects the provider default and passes.
func CheckSynthesisConfig(cfg config.Synthesis) Result {
	const name = "Synthesis endpoint"
	if strings.TrimSpace(cfg.Model) == "" {
		return Result{Name: name, Detail: "model missing"}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via provider default", cfg.Model)}
	}
	host, problem := checkEndpoint(cfg.BaseURL)
	if problem != "" {
		return Result{Name: name, Detail: problem}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Model, host)}
}

// CheckNotifications reports whether job outcome pushes are configured. An
// empty topic is a valid setup, so this check always passes.
func CheckNotifications(cfg config.Notifications) Result {
	const name = "Notifications"
	if strings.TrimSpace(cfg.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy topic configured"}
}

// CheckAnalysis verifies the analysis API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckAnalysis(ctx context.Context, cfg config.Analysis, apiKey string) Result {
	const name = "Analysis API"
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := analysis.NewClient(analysis.Config{
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, analysis.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAnalysisError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func checkEndpoint(base string) (host string, problem string) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", "base URL missing"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Sprintf("base URL invalid (%v)", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Sprintf("base URL scheme %q not supported", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "base URL missing host"
	}
	return parsed.Host, ""
}

// summarizeAnalysisError produces a human-readable summary for health check failures.
func summarizeAnalysisError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (analysis API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (analysis API unreachable)"
	}
	return err.Error()
}
