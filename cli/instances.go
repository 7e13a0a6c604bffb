package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List the tenancy's instances",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		instances, err := client.ListInstances(cmd.Context())
		if err != nil {
			return err
		}

		for _, instance := range instances {
			state := instance.LifecycleState
			switch state {
			case "RUNNING":
				state = color.HiGreenString("%-12s", state)
			case "TERMINATED", "TERMINATING":
				state = color.HiBlackString("%-12s", state)
			default:
				state = color.HiYellowString("%-12s", state)
			}

			sizing := ""
			if instance.ShapeConfig != nil {
				sizing = fmt.Sprintf("%g OCPUs, %g GB", instance.ShapeConfig.Ocpus, instance.ShapeConfig.MemoryInGBs)
			}

			cmd.Printf("%s %-24s %s %s\n", state, instance.Shape, color.HiCyanString(instance.DisplayName), sizing)
		}
		return nil
	},
}
