package main

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version number of Ampere",

	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("ampere version %s (%s)\n", version, commit)
		return nil
	},
}
