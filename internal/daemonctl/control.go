package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"vinylscout/internal/api"
	"vinylscout/internal/config"
	"vinylscout/internal/daemonrun"
)

const (
	requestTimeout = 3 * time.Second
	pollInterval   = 200 * time.Millisecond
)

// ErrDaemonNotRunning indicates neither the API nor a live pid was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached vinylscout daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// BaseURL turns the bind address into a URL reachable from this host.
func BaseURL(bind string) (string, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "", fmt.Errorf("parse api bind %q: %w", bind, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

// FetchStatus asks the running daemon for its status over the HTTP API.
func FetchStatus(ctx context.Context, cfg *config.Config) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	if cfg == nil {
		return status, errors.New("configuration not available")
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return status, errors.New("paths.api_bind is empty; the daemon API is disabled")
	}
	base, err := BaseURL(cfg.Paths.APIBind)
	if err != nil {
		return status, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base+"/api/status", nil)
	if err != nil {
		return status, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status, fmt.Errorf("connect to daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, fmt.Errorf("daemon status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}

// ProcessInfo reads the daemon pid file and reports whether that process is
// alive.
func ProcessInfo(cfg *config.Config) (int, bool) {
	pid, err := daemonrun.ReadPID(cfg)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// EnsureStarted launches the daemon unless one is already alive and waits for
// its API to answer.
func EnsureStarted(ctx context.Context, cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if pid, alive := ProcessInfo(cfg); alive {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	deadline := time.Now().Add(waitTimeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := FetchStatus(ctx, cfg)
		if err == nil {
			pid, _ := ProcessInfo(cfg)
			return StartResult{State: StartStateStarted, PID: pid}, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return StartResult{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return StartResult{}, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// WaitForShutdown waits until the pid recorded for the daemon is gone.
func WaitForShutdown(ctx context.Context, pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("daemon pid %d did not stop within %s", pid, timeout)
}

// StopAndTerminate sends SIGTERM to the daemon and escalates to SIGKILL when
// it is still alive after gracePeriod. The pid file is removed after a kill.
func StopAndTerminate(ctx context.Context, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid, alive := ProcessInfo(cfg)
	if !alive {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if err := WaitForShutdown(ctx, pid, gracePeriod); err == nil {
		return result, nil
	}
	if err := proc.Kill(); err != nil && processAlive(pid) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(daemonrun.PIDPath(cfg)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}
