package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gammadia/ampere/cache"
	"github.com/gammadia/ampere/cli/log"
	"github.com/gammadia/ampere/config"
	"github.com/gammadia/ampere/oci"
	"github.com/gammadia/ampere/waiter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Versioning information set at build time
var version, commit = "dev", "n/a"

var cfg *config.Config
var client *oci.Client

var ampereCmd = &cobra.Command{
	Use:   "ampere",
	Short: "Ampere hunts for OCI compute capacity within tenant-side limits.",

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if err = log.Init(); err != nil {
			return err
		}
		if cmd.Name() == "version" {
			return nil
		}

		if cfg, err = config.FromViper(); err != nil {
			return err
		}
		if client, err = buildClient(cfg); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return nil
	},
}

func buildClient(cfg *config.Config) (*oci.Client, error) {
	options := oci.Options{
		Config: cfg,
		Logger: log.Base.With("component", "oci"),
	}

	if cfg.WaiterFile != "" {
		options.Waiter = waiter.NewFileWaiter(cfg.WaiterFile, cfg.Cooldown)
	}
	if cfg.CacheAvailabilityDomains {
		fileCache, err := cache.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		options.Cache = fileCache
	}

	return oci.NewClient(options)
}

func init() {
	ampereCmd.AddCommand(runCmd)
	ampereCmd.AddCommand(huntCmd)
	ampereCmd.AddCommand(instancesCmd)
	ampereCmd.AddCommand(domainsCmd)
	ampereCmd.AddCommand(versionCmd)

	flags := ampereCmd.PersistentFlags()

	// Logging
	flags.String(log.Format, "text", "log format (json, text)")
	flags.String(log.Level, "INFO", "minimum log level")
	flags.Bool(log.Source, false, "add source code location to logs")

	// Identity
	flags.String(config.Tenancy, "", "tenancy OCID (also used as the compartment)")
	flags.String(config.User, "", "user OCID")
	flags.String(config.Fingerprint, "", "API key fingerprint")
	flags.String(config.KeyFile, "", "path to the API private key (PEM)")
	flags.String(config.Region, "", "region identifier (e.g. eu-zurich-1)")

	// Instance
	flags.String(config.Shape, "VM.Standard.A1.Flex", "shape of the instance to create")
	flags.Float64(config.Ocpus, 4, "OCPU count for flex shapes")
	flags.Float64(config.MemoryInGBs, 24, "memory in GB for flex shapes")
	flags.Int(config.MaxInstances, 1, "maximum number of instances of the shape to keep")
	flags.String(config.Image, "", "boot image OCID")
	flags.String(config.BootVolume, "", "boot volume OCID (takes precedence over the image)")
	flags.Int(config.BootVolumeSize, 0, "boot volume size in GB (0 for the image default)")
	flags.String(config.Subnet, "", "subnet OCID for the primary VNIC")
	flags.String(config.SSHPublicKey, "", "SSH public key authorized on the instance")
	flags.String(config.AvailabilityDomain, "", "availability domain to target (default: try all)")

	// Backoff and caching
	flags.String(config.WaiterFile, "", "file persisting the throttle cooldown (empty: no backoff gate)")
	flags.Duration(config.Cooldown, 10*time.Minute, "how long to back off after the provider throttles us")
	flags.Bool(config.CacheAvailabilityDomains, false, "memoize availability domain lookups")
	flags.String(config.CacheDir, ".ampere-cache", "directory for memoized lookups")

	viper.SetEnvPrefix("ampere")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	lo.Must0(viper.BindPFlags(flags))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ampereCmd.SetOut(os.Stdout)
	if err := ampereCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.HiRedString("Error: %v", err))
		os.Exit(1)
	}
}
