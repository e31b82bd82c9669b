package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZamarianPatrick/pms/config"
)

var initConfigCmd = &cobra.Command{
	Use:          "init-config <path>",
	Short:        "Write the default configuration to a new file",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "default configuration written to %s\n", args[0])
		return nil
	},
}
