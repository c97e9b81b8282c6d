package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"

	"github.com/eahctl/eahctl/internal/copytool"
	"github.com/eahctl/eahctl/internal/platform/azure"
)

// vhdFooterBytes is the trailer appended to the raw disk size for
// upload-mode provisioning. Exported disk content is a fixed VHD whose
// footer sits past the last data byte.
const vhdFooterBytes = 512

// CloneService provisions destination disks and copies source bytes into
// them through time-boxed access grants.
type CloneService struct {
	Disks       azure.DiskManager
	Copier      copytool.Runner
	Observer    Observer
	SASDuration time.Duration
}

// NewCloneService creates a clone service from the migration context.
func NewCloneService(ctx *Context) *CloneService {
	return &CloneService{
		Disks:       ctx.Platform,
		Copier:      ctx.Copier,
		Observer:    ctx.Observer,
		SASDuration: ctx.Options.SASDuration.Std(),
	}
}

// EnsureTarget returns the destination disk named targetName, creating it to
// match the source disk if it does not exist. An existing disk is reused
// verbatim with a warning; no integrity check is performed on reuse.
func (s *CloneService) EnsureTarget(ctx context.Context, source DiskSpec, resourceGroup, targetName string, zones []string) (DiskSpec, error) {
	existing, err := s.Disks.GetDisk(ctx, resourceGroup, targetName)
	if err != nil {
		return DiskSpec{}, fmt.Errorf("failed to check for existing disk %s: %w", targetName, err)
	}
	if existing != nil {
		s.Observer.Warnf("disk %s already exists, reusing it verbatim without integrity check", targetName)
		return NewDiskSpec(resourceGroup, existing)
	}

	disk := armcompute.Disk{
		Location: to.Ptr(source.Location),
		SKU: &armcompute.DiskSKU{
			Name: to.Ptr(source.SKU),
		},
		Properties: &armcompute.DiskProperties{
			CreationData: &armcompute.CreationData{
				CreateOption:    to.Ptr(armcompute.DiskCreateOptionUpload),
				UploadSizeBytes: to.Ptr(source.SizeBytes + vhdFooterBytes),
			},
		},
	}
	for _, zone := range zones {
		disk.Zones = append(disk.Zones, to.Ptr(zone))
	}
	if source.HyperVGen != "" {
		disk.Properties.HyperVGeneration = to.Ptr(source.HyperVGen)
	}
	if source.OSType != "" {
		disk.Properties.OSType = to.Ptr(source.OSType)
	}

	s.Observer.Infof("creating disk %s (%d bytes, %s)", targetName, source.SizeBytes, source.SKU)
	created, err := s.Disks.CreateDisk(ctx, resourceGroup, targetName, disk)
	if err != nil {
		return DiskSpec{}, fmt.Errorf("failed to create disk %s: %w", targetName, err)
	}
	return NewDiskSpec(resourceGroup, created)
}

// Clone copies all bytes of the source disk into the target disk. Read and
// write grants are acquired immediately before the copy and revoked on every
// exit path; revocation failures are swallowed as cleanup warnings. A
// nonzero copy tool exit is fatal to the whole run.
func (s *CloneService) Clone(ctx context.Context, source, target DiskSpec) error {
	readSAS, err := s.Disks.GrantDiskAccess(ctx, source.ResourceGroup, source.Name, armcompute.AccessLevelRead, s.SASDuration)
	if err != nil {
		return fmt.Errorf("failed to grant read access on %s: %w", source.Name, err)
	}
	defer s.revoke(ctx, source)

	writeSAS, err := s.Disks.GrantDiskAccess(ctx, target.ResourceGroup, target.Name, armcompute.AccessLevelWrite, s.SASDuration)
	if err != nil {
		return fmt.Errorf("failed to grant write access on %s: %w", target.Name, err)
	}
	defer s.revoke(ctx, target)

	s.Observer.Infof("copying %s -> %s (%d bytes)", source.Name, target.Name, source.SizeBytes)
	if err := s.Copier.Copy(ctx, readSAS, writeSAS); err != nil {
		if code := copytool.ExitCode(err); code >= 0 {
			return Exitf(ExitCopyToolFailure, "copy %s -> %s failed: %v", source.Name, target.Name, err)
		}
		return fmt.Errorf("copy %s -> %s failed: %w", source.Name, target.Name, err)
	}
	s.Observer.Okf("copied %s -> %s", source.Name, target.Name)
	return nil
}

func (s *CloneService) revoke(ctx context.Context, disk DiskSpec) {
	if err := s.Disks.RevokeDiskAccess(ctx, disk.ResourceGroup, disk.Name); err != nil {
		s.Observer.Warnf("cleanup: failed to revoke access on %s: %v", disk.Name, err)
	}
}

// CloneOSDiskPhase clones the source OS disk into the new OS disk.
type CloneOSDiskPhase struct{}

// NewCloneOSDiskPhase creates the OS disk clone phase.
func NewCloneOSDiskPhase() *CloneOSDiskPhase {
	return &CloneOSDiskPhase{}
}

// Name implements the Phase interface.
func (p *CloneOSDiskPhase) Name() string {
	return "clone-os-disk"
}

// Run implements the Phase interface.
func (p *CloneOSDiskPhase) Run(ctx *Context) error {
	source := ctx.State.Source

	sourceDisk, err := ctx.Platform.GetDiskByID(ctx, source.OSDiskID)
	if err != nil {
		return fmt.Errorf("failed to resolve source OS disk: %w", err)
	}
	spec, err := NewDiskSpec(resourceGroupFromID(source.OSDiskID), sourceDisk)
	if err != nil {
		return err
	}

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would create disk %s and copy %d bytes from %s", ctx.Options.NewOSDiskName, spec.SizeBytes, spec.Name)
		return nil
	}

	service := NewCloneService(ctx)
	target, err := service.EnsureTarget(ctx, spec, source.ResourceGroup, ctx.Options.NewOSDiskName, ctx.State.Placement.Zones)
	if err != nil {
		return err
	}
	if err := service.Clone(ctx, spec, target); err != nil {
		return err
	}

	ctx.State.OSDiskClone = &target
	return nil
}

// resourceGroupFromID extracts the owning resource group from a full
// resource id, falling back to empty on malformed input.
func resourceGroupFromID(id string) string {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return ""
	}
	return rid.ResourceGroupName
}
