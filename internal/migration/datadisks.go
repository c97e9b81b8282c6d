package migration

import (
	"fmt"
	"sort"

	"github.com/eahctl/eahctl/internal/util/naming"
)

// CloneDataDisksPhase enumerates the source VM's data disks and clones each
// one. Disks are processed in ascending slot order for reproducibility;
// correctness does not depend on the order because slots are explicit.
type CloneDataDisksPhase struct{}

// NewCloneDataDisksPhase creates the data disk clone phase.
func NewCloneDataDisksPhase() *CloneDataDisksPhase {
	return &CloneDataDisksPhase{}
}

// Name implements the Phase interface.
func (p *CloneDataDisksPhase) Name() string {
	return "clone-data-disks"
}

// Run implements the Phase interface.
func (p *CloneDataDisksPhase) Run(ctx *Context) error {
	source := ctx.State.Source

	if !ctx.Options.IncludeDataDisks {
		if len(source.DataDisks) > 0 {
			ctx.Observer.Warnf("%d data disks present but --include-data-disks not set, skipping them", len(source.DataDisks))
		}
		return nil
	}
	if len(source.DataDisks) == 0 {
		ctx.Observer.Infof("source VM has no data disks")
		return nil
	}

	mapped, err := MapDataDisks(ctx, source)
	if err != nil {
		return err
	}
	ctx.State.DataDisks = mapped

	if ctx.Options.DryRun {
		for _, dd := range mapped {
			ctx.Observer.Planf("would clone data disk %s (slot %d, %d bytes) to %s",
				dd.Disk.Name, dd.LUN, dd.Disk.SizeBytes, naming.DataDiskClone(dd.Disk.Name))
		}
		return nil
	}

	service := NewCloneService(ctx)
	for _, dd := range mapped {
		targetName := naming.DataDiskClone(dd.Disk.Name)
		target, err := service.EnsureTarget(ctx, dd.Disk, source.ResourceGroup, targetName, ctx.State.Placement.Zones)
		if err != nil {
			return err
		}
		if err := service.Clone(ctx, dd.Disk, target); err != nil {
			return err
		}
		ctx.State.ClonedData = append(ctx.State.ClonedData, ClonedDataDisk{
			Name:    target.Name,
			ID:      target.ID,
			LUN:     dd.LUN,
			Caching: dd.Caching,
		})
	}

	ctx.Observer.Okf("cloned %d data disks", len(ctx.State.ClonedData))
	return nil
}

// MapDataDisks resolves each attached data disk into a record carrying its
// slot, caching mode, and underlying disk metadata, sorted by slot.
func MapDataDisks(ctx *Context, source *SourceVM) ([]DataDiskSource, error) {
	mapped := make([]DataDiskSource, 0, len(source.DataDisks))
	for _, ref := range source.DataDisks {
		if ref.DiskID == "" {
			return nil, fmt.Errorf("data disk %s at slot %d has no managed disk id", ref.Name, ref.LUN)
		}
		disk, err := ctx.Platform.GetDiskByID(ctx, ref.DiskID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data disk at slot %d: %w", ref.LUN, err)
		}
		spec, err := NewDiskSpec(resourceGroupFromID(ref.DiskID), disk)
		if err != nil {
			return nil, err
		}
		mapped = append(mapped, DataDiskSource{
			LUN:     ref.LUN,
			Caching: ref.Caching,
			Disk:    spec,
		})
	}

	sort.Slice(mapped, func(i, j int) bool {
		return mapped[i].LUN < mapped[j].LUN
	})
	return mapped, nil
}
