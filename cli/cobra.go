package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	if cmd.HasSubCommands() {
		return errors.New("\n" + strings.TrimRight(cmd.UsageString(), "\n"))
	}

	return usageError(cmd, "accepts no argument(s)")
}

// ExactArgs is cobra.ExactArgs with the usage hint of NoArgs
func ExactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}
		return usageError(cmd, fmt.Sprintf("requires exactly %d argument(s)", n))
	}
}

func usageError(cmd *cobra.Command, msg string) error {
	return errors.Errorf("\"%s\" %s.\nSee '%s --help'.\n\nUsage:  %s\n\n%s",
		cmd.CommandPath(),
		msg,
		cmd.CommandPath(),
		cmd.UseLine(),
		cmd.Short)
}
