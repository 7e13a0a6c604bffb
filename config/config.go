package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Flag/env keys. With the AMPERE_ prefix and the dash-to-underscore replacer,
// "key-file" is also readable from AMPERE_KEY_FILE.
const (
	Tenancy     = "tenancy"
	User        = "user"
	Fingerprint = "fingerprint"
	KeyFile     = "key-file"
	Region      = "region"

	Image              = "image"
	BootVolume         = "boot-volume"
	BootVolumeSize     = "boot-volume-size"
	Subnet             = "subnet"
	SSHPublicKey       = "ssh-public-key"
	AvailabilityDomain = "availability-domain"

	Shape        = "shape"
	Ocpus        = "ocpus"
	MemoryInGBs  = "memory"
	MaxInstances = "max-instances"

	CacheAvailabilityDomains = "cache-availability-domains"
	CacheDir                 = "cache-dir"
	WaiterFile               = "waiter-file"
	Cooldown                 = "cooldown"
)

// Config is the read-only tenant configuration shared by all operations.
type Config struct {
	TenancyID   string
	UserID      string
	Fingerprint string
	KeyFile     string
	Region      string

	ImageID             string
	BootVolumeID        string
	BootVolumeSizeInGBs int
	SubnetID            string
	SSHPublicKey        string
	AvailabilityDomain  string

	Shape        string
	Ocpus        float64
	MemoryInGBs  float64
	MaxInstances int

	CacheAvailabilityDomains bool
	CacheDir                 string
	WaiterFile               string
	Cooldown                 time.Duration
}

// FromViper builds a validated Config from the bound flags/environment.
func FromViper() (*Config, error) {
	config := &Config{
		TenancyID:   viper.GetString(Tenancy),
		UserID:      viper.GetString(User),
		Fingerprint: viper.GetString(Fingerprint),
		KeyFile:     viper.GetString(KeyFile),
		Region:      viper.GetString(Region),

		ImageID:             viper.GetString(Image),
		BootVolumeID:        viper.GetString(BootVolume),
		BootVolumeSizeInGBs: viper.GetInt(BootVolumeSize),
		SubnetID:            viper.GetString(Subnet),
		SSHPublicKey:        viper.GetString(SSHPublicKey),
		AvailabilityDomain:  viper.GetString(AvailabilityDomain),

		Shape:        viper.GetString(Shape),
		Ocpus:        viper.GetFloat64(Ocpus),
		MemoryInGBs:  viper.GetFloat64(MemoryInGBs),
		MaxInstances: viper.GetInt(MaxInstances),

		CacheAvailabilityDomains: viper.GetBool(CacheAvailabilityDomains),
		CacheDir:                 viper.GetString(CacheDir),
		WaiterFile:               viper.GetString(WaiterFile),
		Cooldown:                 viper.GetDuration(Cooldown),
	}

	return config, config.Validate()
}

// Validate checks that every field required to sign and build a creation
// request is present.
func (c *Config) Validate() error {
	required := map[string]string{
		Tenancy:     c.TenancyID,
		User:        c.UserID,
		Fingerprint: c.Fingerprint,
		KeyFile:     c.KeyFile,
		Region:      c.Region,
		Subnet:      c.SubnetID,
		Shape:       c.Shape,
	}
	for _, name := range []string{Tenancy, User, Fingerprint, KeyFile, Region, Subnet, Shape} {
		if required[name] == "" {
			return fmt.Errorf("missing required configuration '%s'", name)
		}
	}

	if c.ImageID == "" && c.BootVolumeID == "" {
		return fmt.Errorf("either '%s' or '%s' must be configured", Image, BootVolume)
	}
	if c.MaxInstances < 1 {
		return fmt.Errorf("'%s' must be at least 1", MaxInstances)
	}

	return nil
}

// SourceDetails produces the boot source fragment of the creation payload.
// A configured boot volume takes precedence over an image.
func (c *Config) SourceDetails() json.RawMessage {
	details := map[string]any{}
	if c.BootVolumeID != "" {
		details["sourceType"] = "bootVolume"
		details["bootVolumeId"] = c.BootVolumeID
	} else {
		details["sourceType"] = "image"
		details["imageId"] = c.ImageID
		if c.BootVolumeSizeInGBs > 0 {
			details["bootVolumeSizeInGBs"] = c.BootVolumeSizeInGBs
		}
	}
	return lo.Must(json.Marshal(details))
}
