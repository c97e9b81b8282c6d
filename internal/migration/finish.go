package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/eahctl/eahctl/internal/util/naming"
)

const (
	rebootPollInterval = 10 * time.Second
	rebootDeadline     = 15 * time.Minute

	// gptThresholdBytes is the size above which a data disk must carry a GPT
	// partition table; MBR addresses at most 2 TiB.
	gptThresholdBytes = int64(2) << 40
)

// FinishPhase verifies the replacement VM and prepares its freshly cloned
// data disks for use inside the guest.
type FinishPhase struct {
	Interval time.Duration
	Deadline time.Duration
}

// NewFinishPhase creates the finish phase.
func NewFinishPhase() *FinishPhase {
	return &FinishPhase{
		Interval: rebootPollInterval,
		Deadline: rebootDeadline,
	}
}

// Name implements the Phase interface.
func (p *FinishPhase) Name() string {
	return "finish"
}

// Run implements the Phase interface.
func (p *FinishPhase) Run(ctx *Context) error {
	source := ctx.State.Source
	newName := ctx.Options.NewVMName

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would verify encryption at host on %s and initialize %d data volumes",
			newName, len(ctx.State.ClonedData))
		p.printChecklist(ctx)
		return nil
	}

	vm, err := ctx.Platform.GetVM(ctx, source.ResourceGroup, newName)
	if err != nil {
		return fmt.Errorf("failed to re-read VM %s: %w", newName, err)
	}
	if vm == nil {
		return fmt.Errorf("VM %s disappeared after build", newName)
	}

	encrypted := vm.Properties != nil &&
		vm.Properties.SecurityProfile != nil &&
		vm.Properties.SecurityProfile.EncryptionAtHost != nil &&
		*vm.Properties.SecurityProfile.EncryptionAtHost
	if encrypted {
		ctx.State.EncryptionVerified = true
		ctx.Observer.Okf("encryption at host verified on %s", newName)
	} else {
		ctx.Observer.Warnf("encryption at host flag not set on %s, verify the VM manually", newName)
	}

	if len(ctx.State.ClonedData) > 0 && !ctx.State.BuildSkipped {
		if err := p.initializeDataVolumes(ctx, source.ResourceGroup, newName); err != nil {
			return err
		}
	}

	p.printChecklist(ctx)
	ctx.Observer.Okf("migration of %s to %s complete", source.Name, newName)
	return nil
}

// initializeDataVolumes partitions and formats any RAW data disks inside the
// guest, reboots, and reads the resulting volume layout back for the report.
func (p *FinishPhase) initializeDataVolumes(ctx *Context, resourceGroup, vmName string) error {
	ctx.Observer.Infof("initializing %d data volumes inside %s", len(ctx.State.ClonedData), vmName)
	if _, err := ctx.Platform.RunCommand(ctx, resourceGroup, vmName, diskInitScript(len(ctx.State.ClonedData))); err != nil {
		return fmt.Errorf("failed to initialize data volumes: %w", err)
	}

	ctx.Observer.Infof("rebooting %s", vmName)
	if err := ctx.Platform.RestartVM(ctx, resourceGroup, vmName); err != nil {
		return fmt.Errorf("failed to reboot %s: %w", vmName, err)
	}
	if err := p.waitRunning(ctx, resourceGroup, vmName); err != nil {
		return err
	}

	report, err := ctx.Platform.RunCommand(ctx, resourceGroup, vmName, volumeReportScript())
	if err != nil {
		ctx.Observer.Warnf("failed to read back volume layout: %v", err)
		return nil
	}
	ctx.State.VolumeReport = strings.TrimSpace(report)
	if ctx.State.VolumeReport != "" {
		ctx.Observer.Infof("guest volume layout:\n%s", ctx.State.VolumeReport)
	}
	return nil
}

// waitRunning polls the power state until the VM reports running or the
// deadline passes.
func (p *FinishPhase) waitRunning(ctx *Context, resourceGroup, vmName string) error {
	deadline := ctx.Clock.Now().Add(p.Deadline)
	for {
		state, err := ctx.Platform.PowerState(ctx, resourceGroup, vmName)
		if err != nil {
			ctx.Observer.Warnf("power state probe failed, retrying: %v", err)
		} else if state == "running" {
			ctx.Observer.Okf("%s is running", vmName)
			return nil
		}
		if ctx.Clock.Now().After(deadline) {
			return fmt.Errorf("VM %s did not reach running state within %s", vmName, p.Deadline)
		}
		if err := ctx.Clock.Sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

// diskInitScript builds the guest script that partitions and formats RAW
// disks in discovery order. Disks above the MBR addressing limit get a GPT
// table; volume labels are deterministic so re-runs find them by name.
func diskInitScript(diskCount int) []string {
	labels := make([]string, 0, diskCount)
	for i := 0; i < diskCount; i++ {
		labels = append(labels, "'"+naming.DataVolumeLabel(i)+"'")
	}
	return []string{
		"$labels = @(" + strings.Join(labels, ", ") + ")",
		"$i = 0",
		fmt.Sprintf("$gptThreshold = %d", gptThresholdBytes),
		"Get-Disk | Where-Object PartitionStyle -eq 'RAW' | Sort-Object Number | ForEach-Object {",
		"  if ($i -ge $labels.Count) { return }",
		"  $style = if ($_.Size -gt $gptThreshold) { 'GPT' } else { 'MBR' }",
		"  Initialize-Disk -Number $_.Number -PartitionStyle $style",
		"  New-Partition -DiskNumber $_.Number -UseMaximumSize -AssignDriveLetter |",
		"    Format-Volume -FileSystem NTFS -NewFileSystemLabel $labels[$i] -Confirm:$false | Out-Null",
		"  $i++",
		"}",
	}
}

// volumeReportScript reads the guest volume layout for the final report.
func volumeReportScript() []string {
	return []string{
		"Get-Volume | Where-Object DriveLetter | " +
			"Select-Object DriveLetter, FileSystemLabel, FileSystem, Size | " +
			"Sort-Object DriveLetter | Format-Table -AutoSize | Out-String",
	}
}

// printChecklist renders the operator follow-up items derived from the
// source snapshot.
func (p *FinishPhase) printChecklist(ctx *Context) {
	domain := ctx.State.Domain
	if domain == nil {
		return
	}
	if domain.PartOfDomain {
		ctx.Observer.Infof("operator checklist: %s was joined to domain %s as %s, verify the machine account trust after first login",
			ctx.State.Source.Name, domain.DomainName, domain.ComputerName)
	} else {
		ctx.Observer.Infof("operator checklist: source was not domain joined, no trust repair needed")
	}
}
