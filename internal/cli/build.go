package cli

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0x6d61/agentscan/internal/tools"
)

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <tool> <variant> [name=value ...]",
		Short: "Build a validated argument vector (Action) from a command template",
		Example: `  agentscan build nmap tcp_connect_scan target=192.168.1.171 ports=80,443
  agentscan build tshark live_capture_with_count --args '{"interface":"eth0","count":100}'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			named, err := namedArgs(cmd, args[2:])
			if err != nil {
				return err
			}
			action, err := a.registry.BuildAction(args[0], args[1], named)
			if err != nil {
				return buildExitError(err)
			}

			out := cmd.OutOrStdout()
			if argv, _ := cmd.Flags().GetBool("argv"); argv {
				t, _ := a.registry.Get(action.ToolName)
				_, err := out.Write([]byte(strings.Join(action.Argv(t.Describe().BaseCommand), "\n") + "\n"))
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(action)
		},
	}
	cmd.Flags().String("args", "", "Named arguments as a JSON object")
	cmd.Flags().Bool("argv", false, "Print the argv (base command first), one element per line")
	return cmd
}

// namedArgs は --args の JSON と name=value 形式の引数をまとめる。
// JSON の数値は json.Number のまま渡し、整数の表記を崩さない。
func namedArgs(cmd *cobra.Command, pairs []string) (map[string]any, error) {
	named := make(map[string]any)
	if raw, _ := cmd.Flags().GetString("args"); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&named); err != nil {
			return nil, exitError(exitInputParse, "--args: %v", err)
		}
		// --args null は空オブジェクトとして扱う
		if named == nil {
			named = make(map[string]any)
		}
	}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, exitError(exitInputParse, "argument %q is not name=value", p)
		}
		named[name] = value
	}
	return named, nil
}

func buildExitError(err error) error {
	switch {
	case errors.Is(err, tools.ErrValidation):
		return exitError(exitValidation, "%v", err)
	case errors.Is(err, tools.ErrNotFound):
		return exitError(exitNotFound, "%v", err)
	}
	return err
}
