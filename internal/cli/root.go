// Package cli は agentscan のコマンドラインを cobra で組み立てる。
package cli

import (
	"errors"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/0x6d61/agentscan/internal/config"
	"github.com/0x6d61/agentscan/internal/logging"
	"github.com/0x6d61/agentscan/internal/tools"
)

// app はサブコマンド間で共有する起動時の状態。
// PersistentPreRunE で組み立て、以降は読み取り専用。
type app struct {
	cfg      *config.AppConfig
	logger   hclog.Logger
	registry *tools.Registry
}

// NewRootCmd はサブコマンドを全て登録したルートコマンドを返す。
func NewRootCmd(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "agentscan",
		Short: "Allow-listed command construction and result parsing for security tools",
		Long: `agentscan builds allow-listed argument vectors for security tools
(nmap, ffuf, tshark, nikto and user-defined tools) and normalises their raw output
into a single finding schema with a five-tier severity.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().String("config", "config/config.yaml", "Path to config file")
	root.PersistentFlags().String("tools-dir", "", "Directory with additional tool definitions (overrides config)")
	root.PersistentFlags().String("log-level", "", "Log level: trace | debug | info | warn | error (overrides config)")

	root.AddCommand(newToolsCmd(a))
	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newParseCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}
	if dir, _ := cmd.Flags().GetString("tools-dir"); dir != "" {
		cfg.ToolsDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	a.cfg = cfg
	a.logger = logging.New("agentscan", logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})

	patterns := cfg.Blacklist
	if patterns == nil {
		patterns = tools.DefaultDenyPatterns
	}
	reg := tools.NewRegistry(
		tools.WithLogger(a.logger),
		tools.WithBlacklist(tools.NewBlacklist(patterns)),
	)
	if err := reg.LoadBuiltin(); err != nil {
		return exitError(exitConfig, "builtin catalog: %v", err)
	}
	if err := reg.LoadDir(cfg.ToolsDir); err != nil {
		return exitError(exitConfig, "%v", err)
	}
	reg.Seal()
	a.registry = reg
	a.logger.Debug("registry ready", "tools", reg.Names(), "tools_dir", cfg.ToolsDir)
	return nil
}

// readInput は path（"-" または空なら stdin）の内容を返す。
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := readAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", exitError(exitNotFound, "file not found: %s", path)
		}
		return "", exitError(exitInputParse, "reading file: %v", err)
	}
	return string(data), nil
}
