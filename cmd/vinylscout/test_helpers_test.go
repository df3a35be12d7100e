package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vinylscout/internal/config"
	"vinylscout/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dataDir    string
	logDir     string
	vendorURL  string
}

// setupCLITestEnv writes a config with every vendor disabled except yes24,
// which points at a fixture server answering 404 to every search.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"DISCOGS_TOKEN", "NAVER_CLIENT_ID", "NAVER_CLIENT_SECRET", "ALADIN_TTB_KEY", "ELEVENST_API_KEY", "VINYLSCOUT_PG_DSN", "VINYLSCOUT_API_TOKEN"} {
		t.Setenv(key, "")
	}

	server := testsupport.NewFixtureServer(t, nil)
	env := &cliTestEnv{
		baseDir:   base,
		dataDir:   filepath.Join(base, "data"),
		logDir:    filepath.Join(base, "logs"),
		vendorURL: server.URL,
	}
	env.configPath = filepath.Join(homeDir, ".config", "vinylscout", "config.toml")
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = \"127.0.0.1:0\"\n\n", env.dataDir, env.logDir)
	b.WriteString("[fetch]\nmax_retries = 0\nbackoff_initial_ms = 1\n\n")
	b.WriteString("[sync]\nproduct_delay_ms = 1\n\n")
	b.WriteString("[logging]\nlevel = \"error\"\n\n")
	for _, name := range config.VendorNames {
		if name == "yes24" {
			fmt.Fprintf(&b, "[vendors.%s]\nenabled = true\nbase_url = %q\naffiliate_code = \"vs\"\naffiliate_param = \"PID\"\n\n", name, env.vendorURL)
			continue
		}
		fmt.Fprintf(&b, "[vendors.%s]\nenabled = false\n\n", name)
	}
	if err := os.WriteFile(env.configPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
