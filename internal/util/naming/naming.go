// Package naming provides consistent naming functions for migration artifacts.
//
// Cloned disks follow the pattern {source}-{type}-EAH so that a re-run of a
// partially completed migration resolves to the same resource names and the
// idempotent reuse checks can find earlier clones.
package naming

import "fmt"

// OSDiskClone returns the default name for the cloned OS disk of a VM.
func OSDiskClone(sourceVM string) string {
	return fmt.Sprintf("%s-OSDisk-EAH", sourceVM)
}

// DataDiskClone returns the name for the clone of a data disk.
func DataDiskClone(sourceDisk string) string {
	return fmt.Sprintf("%s-EAH", sourceDisk)
}

// DataVolumeLabel returns the deterministic label for the nth freshly
// initialized data volume, counted in guest discovery order.
func DataVolumeLabel(index int) string {
	return fmt.Sprintf("Data%02d", index+1)
}
