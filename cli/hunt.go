package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/gammadia/ampere/cli/ui"
	"github.com/gammadia/ampere/oci"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Keep attempting to create the instance until capacity is found",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		interval := lo.Must(cmd.Flags().GetDuration("interval"))

		spinner := ui.NewSpinner("Hunting for capacity")
		for attempt := 1; ; attempt++ {
			instance, err := attemptCreate(cmd.Context())
			if err == nil {
				spinner.Success(fmt.Sprintf("Created instance '%s' in %s", instance.DisplayName, instance.AvailabilityDomain))
				return nil
			}

			// The admission policy rejecting means the tenancy is already full:
			// hunting further is pointless. Configuration errors never resolve
			// on their own either.
			if errors.Is(err, errAdmissionDenied) || isFatal(err) {
				spinner.Fail(err.Error())
				return err
			}

			delay := interval
			var rateLimited *oci.RateLimitedError
			if errors.As(err, &rateLimited) && rateLimited.RetryIn > delay {
				delay = rateLimited.RetryIn
			}
			spinner.UpdateMessage(fmt.Sprintf("Attempt %d failed (%v), retrying in %s", attempt, err, delay))

			select {
			case <-time.After(delay):
			case <-cmd.Context().Done():
				spinner.Fail("Interrupted")
				return cmd.Context().Err()
			}
			spinner.UpdateMessage(fmt.Sprintf("Hunting for capacity (attempt %d)", attempt+1))
		}
	},
}

func isFatal(err error) bool {
	return errors.Is(err, oci.ErrKeyNotFound) ||
		errors.Is(err, oci.ErrInvalidKey) ||
		errors.Is(err, oci.ErrSigningFailed)
}

func init() {
	huntCmd.Flags().Duration("interval", time.Minute, "delay between creation attempts")
}
