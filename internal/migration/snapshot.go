package migration

import (
	"fmt"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

// BootDiagnosticsMode captures how boot diagnostics were configured on the
// source VM, so the new VM can mirror it exactly.
type BootDiagnosticsMode int

const (
	// BootDiagnosticsDisabled means boot diagnostics were off.
	BootDiagnosticsDisabled BootDiagnosticsMode = iota
	// BootDiagnosticsManaged means enabled with the platform-managed storage.
	BootDiagnosticsManaged
	// BootDiagnosticsCustom means enabled with an explicit storage endpoint.
	BootDiagnosticsCustom
)

// ImageReference identifies the marketplace image the source VM was
// provisioned from.
type ImageReference struct {
	Publisher string
	Offer     string
	SKU       string
	Version   string
}

// PlanReference identifies the marketplace plan attached to the source VM.
type PlanReference struct {
	Name      string
	Product   string
	Publisher string
}

// NICReference is one network interface attachment of the source VM.
type NICReference struct {
	ID      string
	Primary bool
}

// DataDiskReference is one data disk attachment of the source VM.
type DataDiskReference struct {
	LUN     int32
	Name    string
	DiskID  string
	Caching armcompute.CachingTypes
}

// SourceVM is the frozen snapshot of the source VM, read once before any
// destructive action. After the source resource is deleted this snapshot is
// the only remaining description of it.
type SourceVM struct {
	Name          string
	ResourceGroup string
	Location      string
	Size          string

	// AvailabilitySetID and Zones are mutually exclusive.
	AvailabilitySetID string
	Zones             []string

	OSDiskName string
	OSDiskID   string
	OSType     armcompute.OperatingSystemTypes
	DataDisks  []DataDiskReference
	NICs       []NICReference

	EncryptionAtHost bool
	LicenseType      string
	Image            *ImageReference
	Plan             *PlanReference

	BootDiagnostics    BootDiagnosticsMode
	BootDiagnosticsURI string
}

// Placement is the placement triple reused for validation and for the new VM.
type Placement struct {
	Location          string
	AvailabilitySetID string
	Zones             []string
}

// DiskSpec describes a source or newly provisioned managed disk.
type DiskSpec struct {
	Name          string
	ID            string
	ResourceGroup string
	Location      string
	SizeBytes     int64
	SKU           armcompute.DiskStorageAccountTypes
	HyperVGen     armcompute.HyperVGeneration
	OSType        armcompute.OperatingSystemTypes
	Zones         []string
}

// DataDiskSource pairs a source data disk attachment with its resolved disk.
type DataDiskSource struct {
	LUN     int32
	Caching armcompute.CachingTypes
	Disk    DiskSpec
}

// ClonedDataDisk is produced for each successfully cloned data disk and
// consumed by the VM builder.
type ClonedDataDisk struct {
	Name    string
	ID      string
	LUN     int32
	Caching armcompute.CachingTypes
}

// ReclaimedNIC is a network interface freed by deleting the source VM.
type ReclaimedNIC struct {
	ID      string
	Primary bool
}

// DomainInfo is a read-only diagnostic snapshot of the guest's domain
// membership. It never changes migration behavior, only the final report.
type DomainInfo struct {
	PartOfDomain bool
	DomainName   string
	ComputerName string
}

// NewSourceVM normalizes the loosely-typed platform response into the frozen
// snapshot. All optional-field probing happens here; the rest of the run
// works from typed, nullable-free data.
func NewSourceVM(resourceGroup string, vm *armcompute.VirtualMachine) (*SourceVM, error) {
	if vm == nil || vm.Name == nil {
		return nil, fmt.Errorf("platform returned an unnamed VM")
	}

	src := &SourceVM{
		Name:          *vm.Name,
		ResourceGroup: resourceGroup,
	}
	if vm.Location != nil {
		src.Location = *vm.Location
	}
	for _, zone := range vm.Zones {
		if zone != nil {
			src.Zones = append(src.Zones, *zone)
		}
	}
	if vm.Plan != nil {
		src.Plan = &PlanReference{
			Name:      deref(vm.Plan.Name),
			Product:   deref(vm.Plan.Product),
			Publisher: deref(vm.Plan.Publisher),
		}
	}

	props := vm.Properties
	if props == nil {
		return nil, fmt.Errorf("VM %s has no properties", src.Name)
	}

	if props.HardwareProfile != nil && props.HardwareProfile.VMSize != nil {
		src.Size = string(*props.HardwareProfile.VMSize)
	}
	if props.AvailabilitySet != nil {
		src.AvailabilitySetID = deref(props.AvailabilitySet.ID)
	}
	if src.AvailabilitySetID != "" && len(src.Zones) > 0 {
		return nil, fmt.Errorf("VM %s reports both an availability set and zones", src.Name)
	}
	src.LicenseType = deref(props.LicenseType)
	if props.SecurityProfile != nil && props.SecurityProfile.EncryptionAtHost != nil {
		src.EncryptionAtHost = *props.SecurityProfile.EncryptionAtHost
	}

	if sp := props.StorageProfile; sp != nil {
		if sp.OSDisk != nil {
			src.OSDiskName = deref(sp.OSDisk.Name)
			if sp.OSDisk.ManagedDisk != nil {
				src.OSDiskID = deref(sp.OSDisk.ManagedDisk.ID)
			}
			if sp.OSDisk.OSType != nil {
				src.OSType = *sp.OSDisk.OSType
			}
		}
		if ref := sp.ImageReference; ref != nil && ref.Publisher != nil {
			src.Image = &ImageReference{
				Publisher: deref(ref.Publisher),
				Offer:     deref(ref.Offer),
				SKU:       deref(ref.SKU),
				Version:   deref(ref.Version),
			}
		}
		for _, dd := range sp.DataDisks {
			if dd == nil || dd.Lun == nil {
				continue
			}
			ref := DataDiskReference{
				LUN:  *dd.Lun,
				Name: deref(dd.Name),
			}
			if dd.ManagedDisk != nil {
				ref.DiskID = deref(dd.ManagedDisk.ID)
			}
			if dd.Caching != nil {
				ref.Caching = *dd.Caching
			}
			src.DataDisks = append(src.DataDisks, ref)
		}
		sort.Slice(src.DataDisks, func(i, j int) bool {
			return src.DataDisks[i].LUN < src.DataDisks[j].LUN
		})
	}

	if np := props.NetworkProfile; np != nil {
		for _, nic := range np.NetworkInterfaces {
			if nic == nil || nic.ID == nil {
				continue
			}
			ref := NICReference{ID: *nic.ID}
			if nic.Properties != nil && nic.Properties.Primary != nil {
				ref.Primary = *nic.Properties.Primary
			}
			src.NICs = append(src.NICs, ref)
		}
		// A single interface is implicitly primary even when the flag is unset.
		if len(src.NICs) == 1 && !src.NICs[0].Primary {
			src.NICs[0].Primary = true
		}
	}

	if dp := props.DiagnosticsProfile; dp != nil && dp.BootDiagnostics != nil {
		bd := dp.BootDiagnostics
		switch {
		case bd.Enabled == nil || !*bd.Enabled:
			src.BootDiagnostics = BootDiagnosticsDisabled
		case bd.StorageURI != nil && *bd.StorageURI != "":
			src.BootDiagnostics = BootDiagnosticsCustom
			src.BootDiagnosticsURI = *bd.StorageURI
		default:
			src.BootDiagnostics = BootDiagnosticsManaged
		}
	}

	return src, nil
}

// ResolvePlacement derives the placement triple from the frozen snapshot.
func (s *SourceVM) ResolvePlacement() Placement {
	return Placement{
		Location:          s.Location,
		AvailabilitySetID: s.AvailabilitySetID,
		Zones:             s.Zones,
	}
}

// PrimaryNICID returns the id of the interface marked primary on the source.
func (s *SourceVM) PrimaryNICID() string {
	for _, nic := range s.NICs {
		if nic.Primary {
			return nic.ID
		}
	}
	return ""
}

// NewDiskSpec normalizes a platform disk payload.
func NewDiskSpec(resourceGroup string, disk *armcompute.Disk) (DiskSpec, error) {
	if disk == nil || disk.Name == nil {
		return DiskSpec{}, fmt.Errorf("platform returned an unnamed disk")
	}

	spec := DiskSpec{
		Name:          *disk.Name,
		ID:            deref(disk.ID),
		ResourceGroup: resourceGroup,
		Location:      deref(disk.Location),
	}
	if disk.SKU != nil && disk.SKU.Name != nil {
		spec.SKU = *disk.SKU.Name
	}
	for _, zone := range disk.Zones {
		if zone != nil {
			spec.Zones = append(spec.Zones, *zone)
		}
	}
	if props := disk.Properties; props != nil {
		if props.DiskSizeBytes != nil {
			spec.SizeBytes = *props.DiskSizeBytes
		}
		if props.HyperVGeneration != nil {
			spec.HyperVGen = *props.HyperVGeneration
		}
		if props.OSType != nil {
			spec.OSType = *props.OSType
		}
	}
	if spec.SizeBytes == 0 {
		return DiskSpec{}, fmt.Errorf("disk %s reports no size", spec.Name)
	}
	return spec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
