package cli

import (
	"encoding/json"
	"slices"

	"github.com/spf13/cobra"

	"github.com/0x6d61/agentscan/internal/report"
	"github.com/0x6d61/agentscan/pkg/schema"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List registered tools and their command templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			width, _ := cmd.Flags().GetInt("width")
			out := cmd.OutOrStdout()

			summaries := slices.Collect(a.registry.List())
			if len(args) == 1 {
				t, ok := a.registry.Get(args[0])
				if !ok {
					return exitError(exitNotFound, "tool not found: %s", args[0])
				}
				summaries = []schema.ToolSummary{t.Describe()}
			}

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if len(args) == 1 {
					return enc.Encode(summaries[0])
				}
				return enc.Encode(summaries)
			case "table":
				_, err := out.Write([]byte(report.ToolTable(summaries, width)))
				return err
			default:
				return exitError(exitInputParse, "unknown format %q (table | json)", format)
			}
		},
	}
	cmd.Flags().String("format", "table", "Output format: table | json")
	cmd.Flags().Int("width", 100, "Table width in columns")
	return cmd
}
