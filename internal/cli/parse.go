package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/0x6d61/agentscan/internal/report"
)

func newParseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <tool> [file]",
		Short: "Normalise raw tool output into findings",
		Long: `Parse raw tool output (from a file, or stdin when the file is omitted or "-")
into {findings, statistics}. The output format can be json, sarif, markdown or pretty.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			command, _ := cmd.Flags().GetString("command")
			agentID, _ := cmd.Flags().GetString("agent-id")
			width, _ := cmd.Flags().GetInt("width")

			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			raw, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			var agent *string
			if agentID != "" {
				agent = &agentID
			}
			res, err := a.registry.Parse(args[0], raw, command, agent)
			if err != nil {
				return buildExitError(err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "sarif":
				return report.WriteSARIF(out, args[0], res)
			case "markdown":
				_, err := io.WriteString(out, report.Markdown(args[0], res))
				return err
			case "pretty":
				_, err := io.WriteString(out, report.Pretty(args[0], res, width))
				return err
			default:
				return exitError(exitInputParse, "unknown format %q (json | sarif | markdown | pretty)", format)
			}
		},
	}
	cmd.Flags().String("format", "json", "Output format: json | sarif | markdown | pretty")
	cmd.Flags().String("command", "", "The command line that produced the output")
	cmd.Flags().String("agent-id", "", "Agent that executed the command")
	cmd.Flags().Int("width", 100, "Wrap width for pretty output")
	return cmd
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}
