//go:build e2e

// E2E テストは以下の手順で実行する:
//   1. docker compose -f testenv/docker-compose.yml up -d
//   2. go test -v -tags=e2e -timeout 300s ./e2e/...
//   3. docker compose -f testenv/docker-compose.yml down
//
// 環境変数:
//   E2E_TARGET_IP   テスト対象の IP（デフォルト: 127.0.0.1）
//
// コマンドの実行はエージェント側の責務なので、ここではテストが
// エージェント役として Action をそのまま exec する。

package e2e

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/internal/tools"
	"github.com/0x6d61/agentscan/pkg/schema"
)

// targetIP はテスト対象のIPアドレスを返す。
func targetIP() string {
	if ip := os.Getenv("E2E_TARGET_IP"); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// requireBinary は binary がインストールされていることを確認する。
func requireBinary(t *testing.T, binary string) {
	t.Helper()
	if _, err := exec.LookPath(binary); err != nil {
		t.Skipf("%s not available: %v", binary, err)
	}
}

// runAction は Action を base command 付きでシェルを介さずに実行し、stdout を返す。
func runAction(t *testing.T, registry *tools.Registry, a schema.Action) string {
	t.Helper()
	tool, ok := registry.Get(a.ToolName)
	if !ok {
		t.Fatalf("tool %s not registered", a.ToolName)
	}
	argv := a.Argv(tool.Describe().BaseCommand)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		t.Fatalf("%s failed: %v", strings.Join(argv, " "), err)
	}
	return string(out)
}

// TestE2E_NmapPortScan は Metasploitable に対して nmap を実行し
// 期待されるポートが検出されることを確認する。
func TestE2E_NmapPortScan(t *testing.T) {
	requireBinary(t, "nmap")

	registry, err := tools.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	action, err := registry.BuildAction("nmap", "tcp_connect_scan", map[string]any{
		"target": targetIP(),
		"ports":  "21,22,80",
	})
	if err != nil {
		t.Fatalf("BuildAction: %v", err)
	}
	// 永続化された Action も検証を通る
	if ok, _ := registry.ValidateCommand("nmap", action.Args); !ok {
		t.Fatalf("built action does not validate: %v", action.Args)
	}

	raw := runAction(t, registry, action)

	agent := "e2e-agent"
	res, err := registry.Parse("nmap", raw, strings.Join(action.Args, " "), &agent)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, f := range res.Findings {
		t.Logf("[%s] %s %s", f.Severity, f.Title, f.Target)
	}
	if len(res.Findings) == 0 {
		t.Errorf("expected at least one open port, got none\nraw output:\n%s", raw)
	}
	// XML がそのまま読めていればフォールバックは走らない
	if res.Statistics["degraded"] != 0 {
		t.Errorf("nmap XML should parse without fallback, stats: %v", res.Statistics)
	}
}

// TestE2E_NmapVersion は --version 出力からバージョンを取り出せることを確認する。
func TestE2E_NmapVersion(t *testing.T) {
	requireBinary(t, "nmap")

	registry, err := tools.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	tool, _ := registry.Get("nmap")
	s := tool.Describe()

	out, err := exec.Command(s.BaseCommand, s.VersionArg).Output()
	if err != nil {
		t.Fatalf("nmap %s failed: %v", s.VersionArg, err)
	}
	if v := parser.ParseVersion("nmap", string(out)); v == "unknown" {
		t.Errorf("version not found in output: %s", out)
	}
}
