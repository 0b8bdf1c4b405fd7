package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/projtrack/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the projctl build stamp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, config.GetBuildInfo())
		}
		_, err := fmt.Fprintln(out, config.VersionString("projctl"))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
