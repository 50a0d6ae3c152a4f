package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gomtr72/question-generator/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), version.Get(), false)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "questiongen", version.Get().String())
		return err
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print build info as JSON")
}
