package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tool> -- <args...>",
		Short: "Check an argument vector against the tool's command templates",
		Example: `  agentscan validate nmap -- -sT -p 80,443 192.168.1.171 -oX -`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.registry.ValidateCommand(args[0], args[1:])
			if err != nil {
				return buildExitError(err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return exitError(exitValidation, "command does not match any %s template", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}
