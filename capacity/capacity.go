// Package capacity implements the tenant-side admission policy: whether a new
// instance of a shape may be requested at all, given what already exists.
// The check is purely local and advisory; callers run it before attempting a
// creation and honor its verdict.
package capacity

import (
	"fmt"
	"strings"

	"github.com/gammadia/ampere/oci"
	"github.com/samber/lo"
)

// Free-tier ceilings for the A1 flex shape family, per tenancy.
const (
	MaxFlexOcpus       = 4.0
	MaxFlexMemoryInGBs = 24.0
)

// Decision is the outcome of an admission check. It also carries the
// instances the verdict was based on, so callers never need to re-derive the
// filtered set.
type Decision struct {
	// Reason is empty when the request is admissible, otherwise a
	// human-readable explanation of what blocks it.
	Reason string
	// Instances are the existing non-terminated instances of the requested shape.
	Instances []oci.Instance
}

func (d Decision) Admissible() bool {
	return d.Reason == ""
}

// Check decides whether creating one more instance of the given shape is
// admissible. Flex shapes are capped by total OCPUs and memory across the
// tenancy; fixed shapes by instance count.
func Check(existing []oci.Instance, shape string, requested oci.ShapeConfig, maxCount int) Decision {
	decision := Decision{
		Instances: lo.Filter(existing, func(instance oci.Instance, _ int) bool {
			return instance.Shape == shape && instance.LifecycleState != oci.LifecycleTerminated
		}),
	}

	if oci.IsFlexShape(shape) {
		ocpus := requested.Ocpus + lo.SumBy(decision.Instances, func(instance oci.Instance) float64 {
			if instance.ShapeConfig == nil {
				return 0
			}
			return instance.ShapeConfig.Ocpus
		})
		memory := requested.MemoryInGBs + lo.SumBy(decision.Instances, func(instance oci.Instance) float64 {
			if instance.ShapeConfig == nil {
				return 0
			}
			return instance.ShapeConfig.MemoryInGBs
		})

		// The ceilings are inclusive: landing exactly on them is admissible.
		if ocpus > MaxFlexOcpus || memory > MaxFlexMemoryInGBs {
			decision.Reason = fmt.Sprintf(
				"shape %s would exceed tenancy ceilings: %g/%g OCPUs, %g/%g GB memory",
				shape, ocpus, MaxFlexOcpus, memory, MaxFlexMemoryInGBs,
			)
		}
		return decision
	}

	if len(decision.Instances) >= maxCount {
		blockers := lo.Map(decision.Instances, func(instance oci.Instance, _ int) string {
			return fmt.Sprintf("%s (%s)", instance.DisplayName, instance.LifecycleState)
		})
		decision.Reason = fmt.Sprintf(
			"already %d/%d instances of shape %s: %s",
			len(decision.Instances), maxCount, shape, strings.Join(blockers, ", "),
		)
	}
	return decision
}
