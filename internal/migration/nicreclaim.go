package migration

import (
	"fmt"
)

// ReclaimNICsPhase deletes the source VM resource and takes ownership of the
// network interfaces it leaves behind. Deleting a VM detaches but does not
// delete its NICs, so the same interfaces (and their IP configurations) can
// be attached to the replacement VM.
type ReclaimNICsPhase struct{}

// NewReclaimNICsPhase creates the NIC reclamation phase.
func NewReclaimNICsPhase() *ReclaimNICsPhase {
	return &ReclaimNICsPhase{}
}

// Name implements the Phase interface.
func (p *ReclaimNICsPhase) Name() string {
	return "reclaim-nics"
}

// Run implements the Phase interface.
func (p *ReclaimNICsPhase) Run(ctx *Context) error {
	source := ctx.State.Source

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would delete VM %s and reclaim its %d network interfaces", source.Name, len(source.NICs))
		for _, ref := range source.NICs {
			ctx.State.NICs = append(ctx.State.NICs, ReclaimedNIC{ID: ref.ID, Primary: ref.Primary})
		}
		return nil
	}

	ctx.Observer.Infof("deleting source VM %s", source.Name)
	if err := ctx.Platform.DeleteVM(ctx, source.ResourceGroup, source.Name); err != nil {
		return fmt.Errorf("failed to delete source VM %s: %w", source.Name, err)
	}
	ctx.Observer.Okf("source VM %s deleted", source.Name)

	for _, ref := range source.NICs {
		nic, err := ctx.Platform.GetInterfaceByID(ctx, ref.ID)
		if err != nil {
			return fmt.Errorf("network interface %s did not survive VM deletion: %w", ref.ID, err)
		}
		if nic == nil || nic.ID == nil {
			return fmt.Errorf("network interface %s not found after VM deletion", ref.ID)
		}
		ctx.State.NICs = append(ctx.State.NICs, ReclaimedNIC{ID: *nic.ID, Primary: ref.Primary})
	}

	ctx.Observer.Okf("reclaimed %d network interfaces", len(ctx.State.NICs))
	return nil
}
