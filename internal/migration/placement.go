package migration

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

// encryptionCapabilityKeys are the alternate spellings under which the size
// catalog advertises host-encryption support, depending on platform version.
var encryptionCapabilityKeys = []string{
	"EncryptionAtHostSupported",
	"EncryptionAtHostSupport",
	"EncryptionAtHost",
}

// PlacementPhase resolves the placement triple from the frozen snapshot and,
// when requested, validates the target size against the location catalog.
// Validation is advisory tooling for dry runs and --validate-placement, not
// a required gate for real runs.
type PlacementPhase struct{}

// NewPlacementPhase creates the placement phase.
func NewPlacementPhase() *PlacementPhase {
	return &PlacementPhase{}
}

// Name implements the Phase interface.
func (p *PlacementPhase) Name() string {
	return "placement"
}

// Run implements the Phase interface.
func (p *PlacementPhase) Run(ctx *Context) error {
	source := ctx.State.Source
	ctx.State.Placement = source.ResolvePlacement()

	placement := ctx.State.Placement
	switch {
	case placement.AvailabilitySetID != "":
		ctx.Observer.Infof("placement: %s, availability set %s", placement.Location, placement.AvailabilitySetID)
	case len(placement.Zones) > 0:
		ctx.Observer.Infof("placement: %s, zones %s", placement.Location, strings.Join(placement.Zones, ","))
	default:
		ctx.Observer.Infof("placement: %s, regional", placement.Location)
	}

	if !ctx.Options.DryRun && !ctx.Options.ValidatePlacement {
		return nil
	}

	if err := p.validate(ctx, placement, ctx.State.ResolvedSize); err != nil {
		return err
	}
	ctx.Observer.Okf("size %s validated in %s", ctx.State.ResolvedSize, placement.Location)
	return nil
}

// validate confirms the target size exists in the location and, if zones are
// requested, that the size is zone-capable there.
func (p *PlacementPhase) validate(ctx *Context, placement Placement, size string) error {
	skus, err := ctx.Platform.ListVMSizes(ctx, placement.Location)
	if err != nil {
		return Exitf(ExitInvalidPlacement, "failed to query size catalog for %s: %v", placement.Location, err)
	}

	sku := findSize(skus, size)
	if sku == nil {
		return Exitf(ExitInvalidPlacement, "size %s is not available in %s", size, placement.Location)
	}

	// Capability advertisement lags behind actual platform support, so a
	// missing flag is a warning, not a failure.
	switch encryptionCapability(sku) {
	case "True":
		ctx.Observer.Okf("size %s advertises encryption-at-host support", size)
	case "False":
		ctx.Observer.Warnf("size %s advertises no encryption-at-host support in %s; the platform may still accept it", size, placement.Location)
	default:
		ctx.Observer.Warnf("size %s has no encryption-at-host capability hint in %s", size, placement.Location)
	}

	if len(placement.Zones) > 0 {
		zones := zonesForLocation(sku, placement.Location)
		if len(zones) == 0 {
			return Exitf(ExitInvalidPlacement, "size %s has no zone support in %s but zones %s were requested",
				size, placement.Location, strings.Join(placement.Zones, ","))
		}
	}

	return nil
}

func findSize(skus []*armcompute.ResourceSKU, size string) *armcompute.ResourceSKU {
	for _, sku := range skus {
		if sku.Name != nil && strings.EqualFold(*sku.Name, size) {
			return sku
		}
	}
	return nil
}

// encryptionCapability returns the advertised host-encryption capability
// value under any of its known alternate names, or "" if absent.
func encryptionCapability(sku *armcompute.ResourceSKU) string {
	for _, capability := range sku.Capabilities {
		if capability == nil || capability.Name == nil || capability.Value == nil {
			continue
		}
		for _, key := range encryptionCapabilityKeys {
			if strings.EqualFold(*capability.Name, key) {
				return *capability.Value
			}
		}
	}
	return ""
}

func zonesForLocation(sku *armcompute.ResourceSKU, location string) []string {
	var zones []string
	for _, info := range sku.LocationInfo {
		if info == nil || info.Location == nil {
			continue
		}
		if !strings.EqualFold(*info.Location, location) {
			continue
		}
		for _, zone := range info.Zones {
			if zone != nil {
				zones = append(zones, *zone)
			}
		}
	}
	return zones
}
