package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x6d61/agentscan/internal/parser"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tool-version <tool> [file]",
		Short: "Extract the version from `<binary> <version_arg>` output",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := a.registry.Get(args[0])
			if !ok {
				return exitError(exitNotFound, "tool not found: %s", args[0])
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			raw, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), parser.ParseVersion(t.Name(), raw))
			return nil
		},
	}
}
