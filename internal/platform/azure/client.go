// Package azure provides a wrapper around the Azure Resource Manager API.
package azure

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// VirtualMachineManager defines the interface for virtual machine lifecycle
// operations.
type VirtualMachineManager interface {
	// GetVM returns the VM with the given name, or nil if it does not exist.
	GetVM(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error)

	// CreateVM creates a VM and waits until provisioning completes.
	CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error)

	// UpdateVM applies a partial update (disk swap, data disk attach) and
	// waits for it to complete.
	UpdateVM(ctx context.Context, resourceGroup, name string, update armcompute.VirtualMachineUpdate) error

	// DeallocateVM stops the VM and releases its compute allocation.
	DeallocateVM(ctx context.Context, resourceGroup, name string) error

	// StartVM powers the VM on.
	StartVM(ctx context.Context, resourceGroup, name string) error

	// RestartVM reboots the VM.
	RestartVM(ctx context.Context, resourceGroup, name string) error

	// DeleteVM deletes the VM resource. Attached NICs and disks survive the
	// deletion; they are detached, not destroyed.
	DeleteVM(ctx context.Context, resourceGroup, name string) error

	// PowerState returns the VM power state ("running", "deallocated", ...).
	PowerState(ctx context.Context, resourceGroup, name string) (string, error)
}

// DiskManager defines the interface for managed disk operations.
type DiskManager interface {
	// GetDisk returns the disk with the given name, or nil if it does not exist.
	GetDisk(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error)

	// GetDiskByID resolves a disk from its full resource id.
	GetDiskByID(ctx context.Context, id string) (*armcompute.Disk, error)

	// CreateDisk provisions a disk and waits until it is ready.
	CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error)

	// GrantDiskAccess issues a time-boxed SAS endpoint for the disk.
	GrantDiskAccess(ctx context.Context, resourceGroup, name string, level armcompute.AccessLevel, duration time.Duration) (string, error)

	// RevokeDiskAccess revokes a previously granted SAS endpoint.
	RevokeDiskAccess(ctx context.Context, resourceGroup, name string) error
}

// InterfaceResolver defines the interface for network interface lookups.
type InterfaceResolver interface {
	// GetInterfaceByID resolves a NIC from its full resource id.
	GetInterfaceByID(ctx context.Context, id string) (*armnetwork.Interface, error)
}

// SizeCatalog defines the interface for querying the VM size catalog.
type SizeCatalog interface {
	// ListVMSizes returns all virtual machine SKUs available in a location,
	// including capability flags and per-location zone support.
	ListVMSizes(ctx context.Context, location string) ([]*armcompute.ResourceSKU, error)
}

// FeatureManager defines the interface for subscription feature registration.
type FeatureManager interface {
	// RegisterFeature requests registration and returns the resulting state.
	RegisterFeature(ctx context.Context, namespace, name string) (string, error)

	// FeatureState returns the current registration state.
	FeatureState(ctx context.Context, namespace, name string) (string, error)
}

// GuestRunner defines the interface for executing commands inside the guest.
type GuestRunner interface {
	// RunCommand executes a script inside the guest and returns the captured
	// output of all streams.
	RunCommand(ctx context.Context, resourceGroup, vmName string, script []string) (string, error)

	// DisableGuestEncryption triggers the guest-level encryption extension to
	// decrypt the given volume scope ("OS" or "All"). It returns once the
	// extension accepted the operation; decryption itself runs asynchronously
	// inside the guest.
	DisableGuestEncryption(ctx context.Context, resourceGroup, vmName, volumeType string) error

	// RemoveEncryptionExtension removes the guest encryption extension.
	RemoveEncryptionExtension(ctx context.Context, resourceGroup, vmName string) error
}

// MarketplaceManager defines the interface for marketplace term acceptance.
type MarketplaceManager interface {
	// EnsureTermsAccepted accepts the marketplace terms for a plan if they
	// have not been accepted on the subscription yet.
	EnsureTermsAccepted(ctx context.Context, publisher, offer, plan string) error
}

// ResourceManager combines every collaborator operation the migration needs.
type ResourceManager interface {
	VirtualMachineManager
	DiskManager
	InterfaceResolver
	SizeCatalog
	FeatureManager
	GuestRunner
	MarketplaceManager

	// CheckAuth verifies an authenticated session by acquiring a management
	// token.
	CheckAuth(ctx context.Context) error
}
