package azure

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// MockClient is a function-field mock implementation of ResourceManager.
// Unset fields fall back to benign defaults so tests only wire the calls
// they care about.
type MockClient struct {
	GetVMFunc        func(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error)
	CreateVMFunc     func(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error)
	UpdateVMFunc     func(ctx context.Context, resourceGroup, name string, update armcompute.VirtualMachineUpdate) error
	DeallocateVMFunc func(ctx context.Context, resourceGroup, name string) error
	StartVMFunc      func(ctx context.Context, resourceGroup, name string) error
	RestartVMFunc    func(ctx context.Context, resourceGroup, name string) error
	DeleteVMFunc     func(ctx context.Context, resourceGroup, name string) error
	PowerStateFunc   func(ctx context.Context, resourceGroup, name string) (string, error)

	GetDiskFunc          func(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error)
	GetDiskByIDFunc      func(ctx context.Context, id string) (*armcompute.Disk, error)
	CreateDiskFunc       func(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error)
	GrantDiskAccessFunc  func(ctx context.Context, resourceGroup, name string, level armcompute.AccessLevel, duration time.Duration) (string, error)
	RevokeDiskAccessFunc func(ctx context.Context, resourceGroup, name string) error

	GetInterfaceByIDFunc func(ctx context.Context, id string) (*armnetwork.Interface, error)

	ListVMSizesFunc func(ctx context.Context, location string) ([]*armcompute.ResourceSKU, error)

	RegisterFeatureFunc func(ctx context.Context, namespace, name string) (string, error)
	FeatureStateFunc    func(ctx context.Context, namespace, name string) (string, error)

	RunCommandFunc                func(ctx context.Context, resourceGroup, vmName string, script []string) (string, error)
	DisableGuestEncryptionFunc    func(ctx context.Context, resourceGroup, vmName, volumeType string) error
	RemoveEncryptionExtensionFunc func(ctx context.Context, resourceGroup, vmName string) error

	EnsureTermsAcceptedFunc func(ctx context.Context, publisher, offer, plan string) error

	CheckAuthFunc func(ctx context.Context) error
}

func (m *MockClient) GetVM(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error) {
	if m.GetVMFunc != nil {
		return m.GetVMFunc(ctx, resourceGroup, name)
	}
	return nil, nil
}

func (m *MockClient) CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
	if m.CreateVMFunc != nil {
		return m.CreateVMFunc(ctx, resourceGroup, name, vm)
	}
	return &vm, nil
}

func (m *MockClient) UpdateVM(ctx context.Context, resourceGroup, name string, update armcompute.VirtualMachineUpdate) error {
	if m.UpdateVMFunc != nil {
		return m.UpdateVMFunc(ctx, resourceGroup, name, update)
	}
	return nil
}

func (m *MockClient) DeallocateVM(ctx context.Context, resourceGroup, name string) error {
	if m.DeallocateVMFunc != nil {
		return m.DeallocateVMFunc(ctx, resourceGroup, name)
	}
	return nil
}

func (m *MockClient) StartVM(ctx context.Context, resourceGroup, name string) error {
	if m.StartVMFunc != nil {
		return m.StartVMFunc(ctx, resourceGroup, name)
	}
	return nil
}

func (m *MockClient) RestartVM(ctx context.Context, resourceGroup, name string) error {
	if m.RestartVMFunc != nil {
		return m.RestartVMFunc(ctx, resourceGroup, name)
	}
	return nil
}

func (m *MockClient) DeleteVM(ctx context.Context, resourceGroup, name string) error {
	if m.DeleteVMFunc != nil {
		return m.DeleteVMFunc(ctx, resourceGroup, name)
	}
	return nil
}

func (m *MockClient) PowerState(ctx context.Context, resourceGroup, name string) (string, error) {
	if m.PowerStateFunc != nil {
		return m.PowerStateFunc(ctx, resourceGroup, name)
	}
	return "running", nil
}

func (m *MockClient) GetDisk(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error) {
	if m.GetDiskFunc != nil {
		return m.GetDiskFunc(ctx, resourceGroup, name)
	}
	return nil, nil
}

func (m *MockClient) GetDiskByID(ctx context.Context, id string) (*armcompute.Disk, error) {
	if m.GetDiskByIDFunc != nil {
		return m.GetDiskByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockClient) CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
	if m.CreateDiskFunc != nil {
		return m.CreateDiskFunc(ctx, resourceGroup, name, disk)
	}
	return &disk, nil
}

func (m *MockClient) GrantDiskAccess(ctx context.Context, resourceGroup, name string, level armcompute.AccessLevel, duration time.Duration) (string, error) {
	if m.GrantDiskAccessFunc != nil {
		return m.GrantDiskAccessFunc(ctx, resourceGroup, name, level, duration)
	}
	return "https://mock.blob.example/" + name + "?sas", nil
}

func (m *MockClient) RevokeDiskAccess(ctx context.Context, resourceGroup, name string) error {
	if m.RevokeDiskAccessFunc != nil {
		return m.RevokeDiskAccessFunc(ctx, resourceGroup, name)
	}
	return nil
}

func (m *MockClient) GetInterfaceByID(ctx context.Context, id string) (*armnetwork.Interface, error) {
	if m.GetInterfaceByIDFunc != nil {
		return m.GetInterfaceByIDFunc(ctx, id)
	}
	return &armnetwork.Interface{ID: &id}, nil
}

func (m *MockClient) ListVMSizes(ctx context.Context, location string) ([]*armcompute.ResourceSKU, error) {
	if m.ListVMSizesFunc != nil {
		return m.ListVMSizesFunc(ctx, location)
	}
	return nil, nil
}

func (m *MockClient) RegisterFeature(ctx context.Context, namespace, name string) (string, error) {
	if m.RegisterFeatureFunc != nil {
		return m.RegisterFeatureFunc(ctx, namespace, name)
	}
	return "Registered", nil
}

func (m *MockClient) FeatureState(ctx context.Context, namespace, name string) (string, error) {
	if m.FeatureStateFunc != nil {
		return m.FeatureStateFunc(ctx, namespace, name)
	}
	return "Registered", nil
}

func (m *MockClient) RunCommand(ctx context.Context, resourceGroup, vmName string, script []string) (string, error) {
	if m.RunCommandFunc != nil {
		return m.RunCommandFunc(ctx, resourceGroup, vmName, script)
	}
	return "", nil
}

func (m *MockClient) DisableGuestEncryption(ctx context.Context, resourceGroup, vmName, volumeType string) error {
	if m.DisableGuestEncryptionFunc != nil {
		return m.DisableGuestEncryptionFunc(ctx, resourceGroup, vmName, volumeType)
	}
	return nil
}

func (m *MockClient) RemoveEncryptionExtension(ctx context.Context, resourceGroup, vmName string) error {
	if m.RemoveEncryptionExtensionFunc != nil {
		return m.RemoveEncryptionExtensionFunc(ctx, resourceGroup, vmName)
	}
	return nil
}

func (m *MockClient) EnsureTermsAccepted(ctx context.Context, publisher, offer, plan string) error {
	if m.EnsureTermsAcceptedFunc != nil {
		return m.EnsureTermsAcceptedFunc(ctx, publisher, offer, plan)
	}
	return nil
}

func (m *MockClient) CheckAuth(ctx context.Context) error {
	if m.CheckAuthFunc != nil {
		return m.CheckAuthFunc(ctx)
	}
	return nil
}
