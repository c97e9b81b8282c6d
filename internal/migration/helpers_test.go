package migration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/stretchr/testify/require"

	"github.com/eahctl/eahctl/internal/copytool"
	"github.com/eahctl/eahctl/internal/platform/azure"
)

const (
	testSubscription  = "00000000-0000-0000-0000-000000000000"
	testResourceGroup = "rg-a"

	testOSDiskID    = "/subscriptions/" + testSubscription + "/resourceGroups/" + testResourceGroup + "/providers/Microsoft.Compute/disks/vm-a-osdisk"
	testDataDisk0ID = "/subscriptions/" + testSubscription + "/resourceGroups/" + testResourceGroup + "/providers/Microsoft.Compute/disks/vm-a-data0"
	testDataDisk2ID = "/subscriptions/" + testSubscription + "/resourceGroups/" + testResourceGroup + "/providers/Microsoft.Compute/disks/vm-a-data2"
	testNIC0ID      = "/subscriptions/" + testSubscription + "/resourceGroups/" + testResourceGroup + "/providers/Microsoft.Network/networkInterfaces/vm-a-nic0"
	testNIC1ID      = "/subscriptions/" + testSubscription + "/resourceGroups/" + testResourceGroup + "/providers/Microsoft.Network/networkInterfaces/vm-a-nic1"
)

// fakeClock advances instantly on every sleep so polling loops converge
// without real delays.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

// fakeCopier records copy invocations and can fail with a tool exit status.
type fakeCopier struct {
	calls    [][2]string
	exitCode int
	err      error
}

func (f *fakeCopier) Copy(_ context.Context, sourceURL, destinationURL string) error {
	f.calls = append(f.calls, [2]string{sourceURL, destinationURL})
	if f.exitCode != 0 {
		return &copytool.ExitError{Code: f.exitCode}
	}
	return f.err
}

// testVM builds a representative unencrypted source VM payload with two data
// disks at slots 0 and 2 and two NICs, the first primary.
func testVM() *armcompute.VirtualMachine {
	return &armcompute.VirtualMachine{
		Name:     to.Ptr("vm-a"),
		Location: to.Ptr("westeurope"),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes("Standard_D4s_v5")),
			},
			SecurityProfile: &armcompute.SecurityProfile{
				EncryptionAtHost: to.Ptr(false),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{
					Publisher: to.Ptr("MicrosoftWindowsServer"),
					Offer:     to.Ptr("WindowsServer"),
					SKU:       to.Ptr("2022-datacenter"),
					Version:   to.Ptr("latest"),
				},
				OSDisk: &armcompute.OSDisk{
					Name:   to.Ptr("vm-a-osdisk"),
					OSType: to.Ptr(armcompute.OperatingSystemTypesWindows),
					ManagedDisk: &armcompute.ManagedDiskParameters{
						ID: to.Ptr(testOSDiskID),
					},
				},
				DataDisks: []*armcompute.DataDisk{
					{
						Lun:     to.Ptr(int32(2)),
						Name:    to.Ptr("vm-a-data2"),
						Caching: to.Ptr(armcompute.CachingTypesNone),
						ManagedDisk: &armcompute.ManagedDiskParameters{
							ID: to.Ptr(testDataDisk2ID),
						},
					},
					{
						Lun:     to.Ptr(int32(0)),
						Name:    to.Ptr("vm-a-data0"),
						Caching: to.Ptr(armcompute.CachingTypesReadOnly),
						ManagedDisk: &armcompute.ManagedDiskParameters{
							ID: to.Ptr(testDataDisk0ID),
						},
					},
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{
					{
						ID: to.Ptr(testNIC0ID),
						Properties: &armcompute.NetworkInterfaceReferenceProperties{
							Primary: to.Ptr(true),
						},
					},
					{
						ID: to.Ptr(testNIC1ID),
						Properties: &armcompute.NetworkInterfaceReferenceProperties{
							Primary: to.Ptr(false),
						},
					},
				},
			},
			DiagnosticsProfile: &armcompute.DiagnosticsProfile{
				BootDiagnostics: &armcompute.BootDiagnostics{Enabled: to.Ptr(true)},
			},
		},
	}
}

// testDisk builds a managed disk payload for the given id.
func testDisk(id string, sizeBytes int64) *armcompute.Disk {
	name := id[strings.LastIndex(id, "/")+1:]
	return &armcompute.Disk{
		Name:     to.Ptr(name),
		ID:       to.Ptr(id),
		Location: to.Ptr("westeurope"),
		SKU: &armcompute.DiskSKU{
			Name: to.Ptr(armcompute.DiskStorageAccountTypesPremiumLRS),
		},
		Properties: &armcompute.DiskProperties{
			DiskSizeBytes:    to.Ptr(sizeBytes),
			HyperVGeneration: to.Ptr(armcompute.HyperVGenerationV2),
			OSType:           to.Ptr(armcompute.OperatingSystemTypesWindows),
		},
	}
}

// testSKUs returns a size catalog entry matching the test VM size.
func testSKUs() []*armcompute.ResourceSKU {
	return []*armcompute.ResourceSKU{
		{
			Name:         to.Ptr("Standard_D4s_v5"),
			ResourceType: to.Ptr("virtualMachines"),
			Capabilities: []*armcompute.ResourceSKUCapabilities{
				{Name: to.Ptr("EncryptionAtHostSupported"), Value: to.Ptr("True")},
			},
			LocationInfo: []*armcompute.ResourceSKULocationInfo{
				{
					Location: to.Ptr("westeurope"),
					Zones:    []*string{to.Ptr("1"), to.Ptr("2"), to.Ptr("3")},
				},
			},
		},
	}
}

// disksByID wires GetDiskByID/GetDisk mocks over the standard test disks.
func disksByID() map[string]*armcompute.Disk {
	return map[string]*armcompute.Disk{
		testOSDiskID:    testDisk(testOSDiskID, 127*1024*1024*1024),
		testDataDisk0ID: testDisk(testDataDisk0ID, 256*1024*1024*1024),
		testDataDisk2ID: testDisk(testDataDisk2ID, 512*1024*1024*1024),
	}
}

// mockRecorder captures the platform mutations of a run for assertions.
type mockRecorder struct {
	CreatedVMs   map[string]armcompute.VirtualMachine
	UpdatedVMs   map[string]armcompute.VirtualMachineUpdate
	CreatedDisks map[string]armcompute.Disk
	DeletedVMs   []string
	Deallocated  []string
	Grants       []string
	Revokes      []string
	Disabled     []string
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		CreatedVMs:   map[string]armcompute.VirtualMachine{},
		UpdatedVMs:   map[string]armcompute.VirtualMachineUpdate{},
		CreatedDisks: map[string]armcompute.Disk{},
	}
}

func testDiskID(resourceGroup, name string) string {
	return "/subscriptions/" + testSubscription + "/resourceGroups/" + resourceGroup + "/providers/Microsoft.Compute/disks/" + name
}

// newTestMock returns a mock wired for a clean happy-path run: the source VM
// exists, nothing is guest-encrypted, and created resources are readable
// afterwards. All mutations are captured in the returned recorder.
func newTestMock() (*azure.MockClient, *mockRecorder) {
	disks := disksByID()
	rec := newMockRecorder()
	mock := &azure.MockClient{
		GetVMFunc: func(_ context.Context, _, name string) (*armcompute.VirtualMachine, error) {
			if name == "vm-a" {
				return testVM(), nil
			}
			if vm, ok := rec.CreatedVMs[name]; ok {
				return &vm, nil
			}
			return nil, nil
		},
		CreateVMFunc: func(_ context.Context, _, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
			rec.CreatedVMs[name] = vm
			return &vm, nil
		},
		UpdateVMFunc: func(_ context.Context, _, name string, update armcompute.VirtualMachineUpdate) error {
			rec.UpdatedVMs[name] = update
			return nil
		},
		DeleteVMFunc: func(_ context.Context, _, name string) error {
			rec.DeletedVMs = append(rec.DeletedVMs, name)
			return nil
		},
		DeallocateVMFunc: func(_ context.Context, _, name string) error {
			rec.Deallocated = append(rec.Deallocated, name)
			return nil
		},
		GetDiskFunc: func(_ context.Context, _, name string) (*armcompute.Disk, error) {
			if disk, ok := rec.CreatedDisks[name]; ok {
				return &disk, nil
			}
			return nil, nil
		},
		GetDiskByIDFunc: func(_ context.Context, id string) (*armcompute.Disk, error) {
			return disks[id], nil
		},
		CreateDiskFunc: func(_ context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
			created := disk
			created.Name = to.Ptr(name)
			created.ID = to.Ptr(testDiskID(resourceGroup, name))
			if created.Properties != nil && created.Properties.CreationData != nil &&
				created.Properties.CreationData.UploadSizeBytes != nil {
				created.Properties.DiskSizeBytes = to.Ptr(*created.Properties.CreationData.UploadSizeBytes - 512)
			}
			rec.CreatedDisks[name] = created
			return &created, nil
		},
		GrantDiskAccessFunc: func(_ context.Context, _, name string, level armcompute.AccessLevel, _ time.Duration) (string, error) {
			rec.Grants = append(rec.Grants, name)
			return "https://export.example/" + name + "?sig=" + string(level), nil
		},
		RevokeDiskAccessFunc: func(_ context.Context, _, name string) error {
			rec.Revokes = append(rec.Revokes, name)
			return nil
		},
		DisableGuestEncryptionFunc: func(_ context.Context, _, vmName, volumeType string) error {
			rec.Disabled = append(rec.Disabled, vmName+":"+volumeType)
			return nil
		},
		ListVMSizesFunc: func(_ context.Context, _ string) ([]*armcompute.ResourceSKU, error) {
			return testSKUs(), nil
		},
		RunCommandFunc: func(_ context.Context, _, _ string, script []string) (string, error) {
			return guestResponse(script), nil
		},
	}
	return mock, rec
}

// guestResponse fakes the guest side of the run-command scripts used during
// a migration: domain probe, encryption status, and volume report.
func guestResponse(script []string) string {
	if len(script) == 0 {
		return ""
	}
	switch {
	case strings.Contains(script[0], "Win32_ComputerSystem"):
		return `{"PartOfDomain": false, "Domain": "WORKGROUP", "Name": "vm-a"}`
	case strings.Contains(script[0], "Get-BitLockerVolume"):
		return "[]"
	default:
		return ""
	}
}

// testOptions returns a valid option set pointing at the test fixtures. The
// copy tool path resolves to a real executable so preflight passes.
func testOptions(t *testing.T) *Options {
	t.Helper()
	opts := &Options{
		SubscriptionID:   testSubscription,
		ResourceGroup:    testResourceGroup,
		SourceVMName:     "vm-a",
		NewVMName:        "vm-b",
		IncludeDataDisks: true,
		CopyToolPath:     fakeCopyToolBinary(t),
	}
	opts.ApplyDefaults()
	require.NoError(t, opts.Validate())
	return opts
}

// fakeCopyToolBinary drops an executable stub on disk so copy tool
// resolution succeeds without azcopy installed.
func fakeCopyToolBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "azcopy")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

// newTestContext assembles a migration context over the given mock.
func newTestContext(t *testing.T, opts *Options, mock *azure.MockClient, copier copytool.Runner) *Context {
	t.Helper()
	if copier == nil {
		copier = &fakeCopier{}
	}
	return NewContext(
		context.Background(),
		opts,
		mock,
		copier,
		NewConsoleObserverTo(io.Discard, false),
		newFakeClock(),
	)
}
