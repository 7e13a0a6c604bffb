package oci

import (
	"encoding/json"
	"strings"
)

// Lifecycle states of an instance, as reported by the provider.
// https://docs.oracle.com/en-us/iaas/api/#/en/iaas/20160918/Instance/
const (
	LifecycleProvisioning = "PROVISIONING"
	LifecycleRunning      = "RUNNING"
	LifecycleStopping     = "STOPPING"
	LifecycleStopped      = "STOPPED"
	LifecycleTerminating  = "TERMINATING"
	LifecycleTerminated   = "TERMINATED"
)

// ShapeConfig is the sizing of a flexible shape.
type ShapeConfig struct {
	Ocpus       float64 `json:"ocpus"`
	MemoryInGBs float64 `json:"memoryInGBs"`
}

// Instance is a compute instance as returned by the provider.
type Instance struct {
	ID                 string       `json:"id"`
	AvailabilityDomain string       `json:"availabilityDomain"`
	CompartmentID      string       `json:"compartmentId"`
	DisplayName        string       `json:"displayName"`
	LifecycleState     string       `json:"lifecycleState"`
	Region             string       `json:"region"`
	Shape              string       `json:"shape"`
	ShapeConfig        *ShapeConfig `json:"shapeConfig,omitempty"`
	TimeCreated        string       `json:"timeCreated"`
}

// AvailabilityDomain is a fault-isolated zone within a region.
type AvailabilityDomain struct {
	ID            string `json:"id"`
	CompartmentID string `json:"compartmentId"`
	Name          string `json:"name"`
}

// IsFlexShape reports whether a shape is sized by an explicit
// OCPU/memory configuration rather than a fixed template.
func IsFlexShape(shape string) bool {
	return strings.HasSuffix(shape, ".Flex")
}

// Creation payload, mirroring the LaunchInstance API body.

type createInstanceDetails struct {
	AvailabilityDomain string             `json:"availabilityDomain"`
	CompartmentID      string             `json:"compartmentId"`
	DisplayName        string             `json:"displayName"`
	Shape              string             `json:"shape"`
	ShapeConfig        *ShapeConfig       `json:"shapeConfig,omitempty"`
	SourceDetails      json.RawMessage    `json:"sourceDetails"`
	CreateVnicDetails  createVnicDetails  `json:"createVnicDetails"`
	AgentConfig        agentConfig        `json:"agentConfig"`
	AvailabilityConfig availabilityConfig `json:"availabilityConfig"`
	InstanceOptions    instanceOptions    `json:"instanceOptions"`
	Metadata           map[string]string  `json:"metadata"`
}

type createVnicDetails struct {
	AssignPublicIp         bool   `json:"assignPublicIp"`
	AssignPrivateDnsRecord bool   `json:"assignPrivateDnsRecord"`
	SubnetID               string `json:"subnetId"`
}

type agentConfig struct {
	PluginsConfig        []pluginConfig `json:"pluginsConfig"`
	IsMonitoringDisabled bool           `json:"isMonitoringDisabled"`
	IsManagementDisabled bool           `json:"isManagementDisabled"`
}

type pluginConfig struct {
	Name         string `json:"name"`
	DesiredState string `json:"desiredState"`
}

type availabilityConfig struct {
	RecoveryAction string `json:"recoveryAction"`
}

type instanceOptions struct {
	AreLegacyImdsEndpointsDisabled bool `json:"areLegacyImdsEndpointsDisabled"`
}
