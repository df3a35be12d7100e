package daemonctl_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"vinylscout/internal/daemonctl"
	"vinylscout/internal/daemonrun"
	"vinylscout/internal/testsupport"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		bind    string
		want    string
		wantErr bool
	}{
		{bind: "127.0.0.1:7390", want: "http://127.0.0.1:7390"},
		{bind: "0.0.0.0:7390", want: "http://127.0.0.1:7390"},
		{bind: ":7390", want: "http://127.0.0.1:7390"},
		{bind: "[::1]:7390", want: "http://[::1]:7390"},
		{bind: "localhost", wantErr: true},
	}
	for _, tt := range tests {
		got, err := daemonctl.BaseURL(tt.bind)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BaseURL(%q) expected error", tt.bind)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("BaseURL(%q) = %q, %v; want %q", tt.bind, got, err, tt.want)
		}
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"running":true,"busy":"sync","vendors":["yes24"]}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = strings.TrimPrefix(server.URL, "http://")

	if _, err := daemonctl.FetchStatus(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	cfg.Paths.APIToken = "tok"
	status, err := daemonctl.FetchStatus(context.Background(), cfg)
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if !status.Running || status.Busy != "sync" || len(status.Vendors) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	cfg.Paths.APIBind = ""
	if _, err := daemonctl.FetchStatus(context.Background(), cfg); err == nil {
		t.Fatal("expected error when the API is disabled")
	}
}

func TestProcessInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, alive := daemonctl.ProcessInfo(cfg); alive {
		t.Fatal("no pid file should mean not alive")
	}

	writePID(t, cfg.Paths.LogDir, daemonrun.PIDPath(cfg), os.Getpid())
	pid, alive := daemonctl.ProcessInfo(cfg)
	if !alive || pid != os.Getpid() {
		t.Fatalf("ProcessInfo = %d, %v; want own pid alive", pid, alive)
	}
}

func TestStopAndTerminate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(context.Background(), cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}

	writePID(t, cfg.Paths.LogDir, daemonrun.PIDPath(cfg), os.Getpid())
	if _, err := daemonctl.StopAndTerminate(context.Background(), cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the current process")
	}
}

func TestEnsureStartedWhenAlreadyRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writePID(t, cfg.Paths.LogDir, daemonrun.PIDPath(cfg), os.Getpid())

	result, err := daemonctl.EnsureStarted(context.Background(), cfg, "/nonexistent/vinylscout", daemonctl.LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != daemonctl.StartStateAlreadyRunning || result.PID != os.Getpid() {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := daemonctl.Launch("  ", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func writePID(t *testing.T, dir, path string, pid int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
}
