package migration

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

// BuildStrategy selects how the replacement VM is constructed.
type BuildStrategy int

const (
	// StrategyDirectAttach creates the VM directly on the cloned OS disk.
	// Always available, but the resulting VM carries no image reference.
	StrategyDirectAttach BuildStrategy = iota

	// StrategyImageRebuild provisions the VM from the original marketplace
	// image and then swaps its OS disk for the clone, preserving the image
	// reference on the resource. Requires the source image reference and an
	// admin credential for the initial provisioning.
	StrategyImageRebuild
)

// String returns the strategy name used in logs and plans.
func (s BuildStrategy) String() string {
	if s == StrategyImageRebuild {
		return "image-rebuild"
	}
	return "direct-attach"
}

// ChooseStrategy picks the build strategy once, before any mutation.
func ChooseStrategy(source *SourceVM, opts *Options) BuildStrategy {
	if source.Image != nil && opts.HasAdminCredential() {
		return StrategyImageRebuild
	}
	return StrategyDirectAttach
}

// BuildPhase constructs the replacement VM with encryption at host enabled,
// the cloned disks, and the reclaimed network interfaces.
type BuildPhase struct{}

// NewBuildPhase creates the VM build phase.
func NewBuildPhase() *BuildPhase {
	return &BuildPhase{}
}

// Name implements the Phase interface.
func (p *BuildPhase) Name() string {
	return "build-vm"
}

// Run implements the Phase interface.
func (p *BuildPhase) Run(ctx *Context) error {
	source := ctx.State.Source
	newName := ctx.Options.NewVMName

	existing, err := ctx.Platform.GetVM(ctx, source.ResourceGroup, newName)
	if err != nil {
		return fmt.Errorf("failed to check for existing VM %s: %w", newName, err)
	}
	if existing != nil {
		ctx.Observer.Warnf("VM %s already exists, treating it as already migrated", newName)
		ctx.State.BuildSkipped = true
		return nil
	}

	strategy := ChooseStrategy(source, ctx.Options)

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would build VM %s via %s (size %s, encryption at host on, %d NICs, %d data disks)",
			newName, strategy, ctx.State.ResolvedSize, len(ctx.State.NICs), len(ctx.State.ClonedData))
		return nil
	}

	if source.Plan != nil {
		if err := ctx.Platform.EnsureTermsAccepted(ctx, source.Plan.Publisher, source.Plan.Product, source.Plan.Name); err != nil {
			return fmt.Errorf("failed to accept marketplace terms for plan %s: %w", source.Plan.Name, err)
		}
	}

	switch strategy {
	case StrategyImageRebuild:
		return p.buildFromImage(ctx)
	default:
		return p.buildDirectAttach(ctx)
	}
}

// buildDirectAttach creates the VM in one shot, booting straight from the
// cloned OS disk.
func (p *BuildPhase) buildDirectAttach(ctx *Context) error {
	source := ctx.State.Source
	newName := ctx.Options.NewVMName
	clone := ctx.State.OSDiskClone

	vm := p.baseVM(ctx)
	vm.Properties.StorageProfile = &armcompute.StorageProfile{
		OSDisk: &armcompute.OSDisk{
			Name:         to.Ptr(clone.Name),
			CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
			OSType:       to.Ptr(source.OSType),
			ManagedDisk: &armcompute.ManagedDiskParameters{
				ID: to.Ptr(clone.ID),
			},
		},
		DataDisks: attachedDataDisks(ctx.State.ClonedData),
	}

	ctx.Observer.Infof("creating VM %s from cloned OS disk %s", newName, clone.Name)
	if _, err := ctx.Platform.CreateVM(ctx, source.ResourceGroup, newName, vm); err != nil {
		return fmt.Errorf("failed to create VM %s: %w", newName, err)
	}
	ctx.Observer.Okf("VM %s created with encryption at host enabled", newName)
	return nil
}

// buildFromImage provisions the VM from the original marketplace image, then
// deallocates it, swaps the freshly imaged OS disk for the clone, attaches
// the cloned data disks, and powers it back on. The throwaway imaged disk is
// left detached.
func (p *BuildPhase) buildFromImage(ctx *Context) error {
	source := ctx.State.Source
	newName := ctx.Options.NewVMName
	clone := ctx.State.OSDiskClone
	scratchDisk := newName + "-OSDisk-scratch"

	vm := p.baseVM(ctx)
	vm.Properties.OSProfile = &armcompute.OSProfile{
		ComputerName:  to.Ptr(newName),
		AdminUsername: to.Ptr(ctx.Options.AdminUsername),
		AdminPassword: to.Ptr(ctx.Options.AdminPassword),
	}
	vm.Properties.StorageProfile = &armcompute.StorageProfile{
		ImageReference: &armcompute.ImageReference{
			Publisher: to.Ptr(source.Image.Publisher),
			Offer:     to.Ptr(source.Image.Offer),
			SKU:       to.Ptr(source.Image.SKU),
			Version:   to.Ptr(source.Image.Version),
		},
		OSDisk: &armcompute.OSDisk{
			Name:         to.Ptr(scratchDisk),
			CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
		},
	}

	ctx.Observer.Infof("creating VM %s from image %s:%s:%s:%s",
		newName, source.Image.Publisher, source.Image.Offer, source.Image.SKU, source.Image.Version)
	if _, err := ctx.Platform.CreateVM(ctx, source.ResourceGroup, newName, vm); err != nil {
		return fmt.Errorf("failed to create VM %s: %w", newName, err)
	}

	ctx.Observer.Infof("deallocating %s to swap its OS disk", newName)
	if err := ctx.Platform.DeallocateVM(ctx, source.ResourceGroup, newName); err != nil {
		return fmt.Errorf("failed to deallocate VM %s: %w", newName, err)
	}

	update := armcompute.VirtualMachineUpdate{
		Properties: &armcompute.VirtualMachineProperties{
			StorageProfile: &armcompute.StorageProfile{
				OSDisk: &armcompute.OSDisk{
					Name:         to.Ptr(clone.Name),
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						ID: to.Ptr(clone.ID),
					},
				},
				DataDisks: attachedDataDisks(ctx.State.ClonedData),
			},
		},
	}
	ctx.Observer.Infof("swapping OS disk of %s to %s", newName, clone.Name)
	if err := ctx.Platform.UpdateVM(ctx, source.ResourceGroup, newName, update); err != nil {
		return fmt.Errorf("failed to swap OS disk of VM %s: %w", newName, err)
	}
	ctx.Observer.Warnf("imaged scratch disk %s left detached, delete it once the migration is verified", scratchDisk)

	ctx.Observer.Infof("starting %s", newName)
	if err := ctx.Platform.StartVM(ctx, source.ResourceGroup, newName); err != nil {
		return fmt.Errorf("failed to start VM %s: %w", newName, err)
	}
	ctx.Observer.Okf("VM %s created with encryption at host enabled", newName)
	return nil
}

// baseVM assembles the configuration shared by both build strategies:
// placement, size, security profile, network interfaces, licensing, plan,
// and mirrored boot diagnostics. The storage profile is left to the caller.
func (p *BuildPhase) baseVM(ctx *Context) armcompute.VirtualMachine {
	source := ctx.State.Source
	placement := ctx.State.Placement

	vm := armcompute.VirtualMachine{
		Location: to.Ptr(placement.Location),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(ctx.State.ResolvedSize)),
			},
			SecurityProfile: &armcompute.SecurityProfile{
				EncryptionAtHost: to.Ptr(true),
			},
			NetworkProfile: &armcompute.NetworkProfile{},
		},
	}

	if placement.AvailabilitySetID != "" {
		vm.Properties.AvailabilitySet = &armcompute.SubResource{
			ID: to.Ptr(placement.AvailabilitySetID),
		}
	}
	for _, zone := range placement.Zones {
		vm.Zones = append(vm.Zones, to.Ptr(zone))
	}

	for _, nic := range ctx.State.NICs {
		vm.Properties.NetworkProfile.NetworkInterfaces = append(vm.Properties.NetworkProfile.NetworkInterfaces,
			&armcompute.NetworkInterfaceReference{
				ID: to.Ptr(nic.ID),
				Properties: &armcompute.NetworkInterfaceReferenceProperties{
					Primary: to.Ptr(nic.Primary),
				},
			})
	}

	if source.LicenseType != "" {
		vm.Properties.LicenseType = to.Ptr(source.LicenseType)
	}
	if source.Plan != nil {
		vm.Plan = &armcompute.Plan{
			Name:      to.Ptr(source.Plan.Name),
			Product:   to.Ptr(source.Plan.Product),
			Publisher: to.Ptr(source.Plan.Publisher),
		}
	}

	switch source.BootDiagnostics {
	case BootDiagnosticsManaged:
		vm.Properties.DiagnosticsProfile = &armcompute.DiagnosticsProfile{
			BootDiagnostics: &armcompute.BootDiagnostics{Enabled: to.Ptr(true)},
		}
	case BootDiagnosticsCustom:
		vm.Properties.DiagnosticsProfile = &armcompute.DiagnosticsProfile{
			BootDiagnostics: &armcompute.BootDiagnostics{
				Enabled:    to.Ptr(true),
				StorageURI: to.Ptr(source.BootDiagnosticsURI),
			},
		}
	default:
		vm.Properties.DiagnosticsProfile = &armcompute.DiagnosticsProfile{
			BootDiagnostics: &armcompute.BootDiagnostics{Enabled: to.Ptr(false)},
		}
	}

	return vm
}

// attachedDataDisks renders the cloned data disks as attach entries at their
// original slots with their original caching modes.
func attachedDataDisks(cloned []ClonedDataDisk) []*armcompute.DataDisk {
	disks := make([]*armcompute.DataDisk, 0, len(cloned))
	for _, dd := range cloned {
		entry := &armcompute.DataDisk{
			Lun:          to.Ptr(dd.LUN),
			Name:         to.Ptr(dd.Name),
			CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
			ManagedDisk: &armcompute.ManagedDiskParameters{
				ID: to.Ptr(dd.ID),
			},
		}
		if dd.Caching != "" {
			entry.Caching = to.Ptr(dd.Caching)
		}
		disks = append(disks, entry)
	}
	return disks
}
