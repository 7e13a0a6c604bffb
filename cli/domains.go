package main

import (
	"github.com/spf13/cobra"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the region's availability domains",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		domains, err := client.ListAvailabilityDomains(cmd.Context())
		if err != nil {
			return err
		}

		for _, domain := range domains {
			cmd.Println(domain.Name)
		}
		return nil
	},
}
