package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/gammadia/ampere/capacity"
	"github.com/gammadia/ampere/cli/log"
	"github.com/gammadia/ampere/oci"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// errAdmissionDenied marks failures of the local capacity check, as opposed
// to errors from the provider.
var errAdmissionDenied = errors.New("admission denied")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attempt to create the configured instance once",
	Long: "Runs one full pass: list existing instances, check the local admission\n" +
		"policy, then try each availability domain until one accepts the creation.\n" +
		"Suited for periodic execution from cron.",
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		instance, err := attemptCreate(cmd.Context())
		if err != nil {
			return err
		}

		cmd.Printf(color.HiGreenString("Created instance '%s' in %s\n"), instance.DisplayName, instance.AvailabilityDomain)
		return nil
	},
}

// attemptCreate runs one admission-gated creation pass. Out-of-capacity
// responses move on to the next availability domain; everything else aborts.
func attemptCreate(ctx context.Context) (*oci.Instance, error) {
	instances, err := client.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	requested := oci.ShapeConfig{Ocpus: cfg.Ocpus, MemoryInGBs: cfg.MemoryInGBs}
	decision := capacity.Check(instances, cfg.Shape, requested, cfg.MaxInstances)
	if !decision.Admissible() {
		return nil, fmt.Errorf("%w: %s", errAdmissionDenied, decision.Reason)
	}

	domains := []string{cfg.AvailabilityDomain}
	if cfg.AvailabilityDomain == "" {
		availabilityDomains, err := client.ListAvailabilityDomains(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list availability domains: %w", err)
		}
		domains = lo.Map(availabilityDomains, func(domain oci.AvailabilityDomain, _ int) string {
			return domain.Name
		})
	}
	if len(domains) == 0 {
		return nil, errors.New("no availability domain to try")
	}

	var lastErr error
	for _, domain := range domains {
		instance, err := client.CreateInstance(ctx, cfg.Shape, cfg.SSHPublicKey, domain)
		if err != nil {
			var apiErr *oci.APIError
			if errors.As(err, &apiErr) && apiErr.OutOfCapacity() {
				log.Info("No capacity in availability domain", "availabilityDomain", domain)
				lastErr = err
				continue
			}
			return nil, err
		}
		return instance, nil
	}

	return nil, fmt.Errorf("no capacity in any availability domain: %w", lastErr)
}
