package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0x6d61/agentscan/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `tools_dir: /opt/agentscan/tools
blacklist:
  - 'rm\s+-rf\s+/'
  - 'dd\s+if='
log:
  level: debug
  json: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ToolsDir != "/opt/agentscan/tools" {
		t.Errorf("unexpected tools_dir: %s", cfg.ToolsDir)
	}
	if len(cfg.Blacklist) != 2 {
		t.Fatalf("expected 2 blacklist patterns, got %d", len(cfg.Blacklist))
	}
	if cfg.Blacklist[0] != `rm\s+-rf\s+/` {
		t.Errorf("unexpected blacklist pattern: %s", cfg.Blacklist[0])
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CONFIG_HOME", "/home/testuser")
	path := writeConfig(t, `tools_dir: "${TEST_CONFIG_HOME}/tools"`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ToolsDir != "/home/testuser/tools" {
		t.Errorf("expected expanded path, got '%s'", cfg.ToolsDir)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGENTSCAN_TOOLS_DIR", "/srv/tools")
	t.Setenv("AGENTSCAN_LOG_LEVEL", "DEBUG")
	t.Setenv("AGENTSCAN_LOG_JSON", "true")
	path := writeConfig(t, "tools_dir: ./tools\nlog:\n  level: error\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ToolsDir != "/srv/tools" {
		t.Errorf("tools_dir: got %q", cfg.ToolsDir)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoad_EnvOverride_InvalidBool(t *testing.T) {
	t.Setenv("AGENTSCAN_LOG_JSON", "sometimes")
	if _, err := config.Load(writeConfig(t, "")); err == nil {
		t.Error("expected error for invalid AGENTSCAN_LOG_JSON")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENTSCAN_TEST_ROOT=/from/dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`tools_dir: "${AGENTSCAN_TEST_ROOT}/tools"`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("AGENTSCAN_TEST_ROOT") })

	cfg, err := config.Load("config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ToolsDir != "/from/dotenv/tools" {
		t.Errorf(".env should be loaded before expansion, got %q", cfg.ToolsDir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected nil error for missing file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil default config")
	}
	if cfg.ToolsDir != "tools" {
		t.Errorf("expected default tools_dir, got %q", cfg.ToolsDir)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected default log level warn, got %q", cfg.Log.Level)
	}
	// blacklist 未指定は nil（呼び出し側がデフォルトパターンを使う）
	if cfg.Blacklist != nil {
		t.Errorf("expected nil blacklist, got %v", cfg.Blacklist)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := config.Load(writeConfig(t, "blacklist: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}
