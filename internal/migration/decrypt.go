package migration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	decryptPollInterval = 30 * time.Second

	// decryptDeadline bounds the wait. BitLocker decryption of large volumes
	// is slow but not open-ended; a run that exceeds this is stuck.
	decryptDeadline = 12 * time.Hour

	decryptStatusScript = "manage-bde -status"
)

// VolumeStatus is one guest volume's decryption progress, parsed from the
// line-oriented status output.
type VolumeStatus struct {
	MountPoint     string
	IsOS           bool
	Percent        float64
	InProgress     bool
	FullyDecrypted bool
}

// DecryptPhase drives guest-level encryption off and waits until the guest
// confirms full decryption for the required scope.
type DecryptPhase struct {
	// Interval and Deadline are overridable for tests.
	Interval time.Duration
	Deadline time.Duration
}

// NewDecryptPhase creates the decryption phase with production timing.
func NewDecryptPhase() *DecryptPhase {
	return &DecryptPhase{
		Interval: decryptPollInterval,
		Deadline: decryptDeadline,
	}
}

// Name implements the Phase interface.
func (p *DecryptPhase) Name() string {
	return "decrypt"
}

// Run implements the Phase interface.
func (p *DecryptPhase) Run(ctx *Context) error {
	source := ctx.State.Source

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would disable guest encryption on %s and wait for full decryption", source.Name)
		return nil
	}

	scope, err := p.probeScope(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to determine encryption scope: %w", err)
	}
	if !scope.Any() {
		ctx.Observer.Infof("no guest-encrypted volumes on %s, skipping decryption", source.Name)
		return nil
	}
	ctx.Observer.Infof("guest encryption detected on %s: os=%t data=%t, disabling scope %s",
		source.Name, scope.OSEncrypted, scope.DataEncrypted, scope.VolumeType())

	// The disable action runs exactly once; the loop below only observes.
	if err := ctx.Platform.DisableGuestEncryption(ctx, source.ResourceGroup, source.Name, scope.VolumeType()); err != nil {
		return fmt.Errorf("failed to disable guest encryption: %w", err)
	}

	if err := p.wait(ctx, source, scope); err != nil {
		return err
	}

	// Cleanup never raises: a stale extension does not block the migration.
	if err := ctx.Platform.RemoveEncryptionExtension(ctx, source.ResourceGroup, source.Name); err != nil {
		ctx.Observer.Warnf("cleanup: failed to remove encryption extension: %v", err)
	}
	return nil
}

// probeScope reads the guest's per-volume encryption status once to decide
// whether decryption targets the OS volume only or all volumes.
func (p *DecryptPhase) probeScope(ctx *Context, source *SourceVM) (EncryptionScope, error) {
	out, err := ctx.Platform.RunCommand(ctx, source.ResourceGroup, source.Name, []string{encryptionStatusScript})
	if err != nil {
		return EncryptionScope{}, err
	}
	return ParseEncryptionScope(out)
}

// wait polls the guest status probe until the scope-specific termination
// condition holds. Transient probe failures are logged and retried; only the
// deadline or context cancellation abort the loop.
func (p *DecryptPhase) wait(ctx *Context, source *SourceVM, scope EncryptionScope) error {
	deadline := ctx.Clock.Now().Add(p.Deadline)

	for {
		out, err := ctx.Platform.RunCommand(ctx, source.ResourceGroup, source.Name, []string{decryptStatusScript})
		if err != nil {
			ctx.Observer.Warnf("decryption status probe failed, retrying: %v", err)
		} else {
			volumes := ParseVolumeStatus(out)
			if len(volumes) == 0 {
				ctx.Observer.Warnf("decryption status probe returned no volumes, retrying")
			} else {
				logDecryptionProgress(ctx.Observer, volumes)
				if decryptionComplete(scope, volumes) {
					ctx.Observer.Okf("guest reports full decryption for scope %s", scope.VolumeType())
					return nil
				}
			}
		}

		if ctx.Clock.Now().After(deadline) {
			return fmt.Errorf("decryption did not complete within %v", p.Deadline)
		}
		if err := ctx.Clock.Sleep(ctx, p.Interval); err != nil {
			return fmt.Errorf("decryption wait cancelled: %w", err)
		}
	}
}

// ParseVolumeStatus parses per-volume decryption progress from the guest's
// line-oriented status output.
func ParseVolumeStatus(out string) []VolumeStatus {
	var volumes []VolumeStatus
	var current *VolumeStatus

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "Volume ") {
			if current != nil {
				volumes = append(volumes, *current)
			}
			mount := strings.TrimPrefix(trimmed, "Volume ")
			if idx := strings.Index(mount, " "); idx > 0 {
				mount = mount[:idx]
			}
			current = &VolumeStatus{
				MountPoint: strings.TrimSuffix(mount, ":") + ":",
				IsOS:       strings.EqualFold(strings.TrimSuffix(mount, ":"), "C"),
			}
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "[OS Volume]"):
			current.IsOS = true
		case strings.HasPrefix(trimmed, "[Data Volume]"):
			current.IsOS = false
		case strings.HasPrefix(trimmed, "Conversion Status:"):
			status := strings.TrimSpace(strings.TrimPrefix(trimmed, "Conversion Status:"))
			current.FullyDecrypted = strings.EqualFold(status, "Fully Decrypted")
			current.InProgress = strings.Contains(strings.ToLower(status), "in progress")
		case strings.HasPrefix(trimmed, "Percentage Encrypted:"):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "Percentage Encrypted:"))
			value = strings.TrimSuffix(value, "%")
			value = strings.ReplaceAll(value, ",", ".")
			if pct, err := strconv.ParseFloat(value, 64); err == nil {
				current.Percent = pct
			}
		}
	}
	if current != nil {
		volumes = append(volumes, *current)
	}
	return volumes
}

// decryptionComplete evaluates the scope-specific termination condition.
//
// OS-only scope requires BOTH the terminal status marker and an exact 0.0%
// reading on the OS volume; either alone is not sufficient (status output has
// been observed reporting each ahead of the other).
func decryptionComplete(scope EncryptionScope, volumes []VolumeStatus) bool {
	if scope.DataEncrypted {
		for _, vol := range volumes {
			if vol.InProgress || vol.Percent != 0 {
				return false
			}
		}
		return true
	}

	for _, vol := range volumes {
		if vol.IsOS && vol.FullyDecrypted && vol.Percent == 0.0 {
			return true
		}
	}
	return false
}

func logDecryptionProgress(obs Observer, volumes []VolumeStatus) {
	parts := make([]string, 0, len(volumes))
	for _, vol := range volumes {
		state := "idle"
		switch {
		case vol.FullyDecrypted:
			state = "decrypted"
		case vol.InProgress:
			state = "converting"
		}
		parts = append(parts, fmt.Sprintf("%s %.1f%% (%s)", vol.MountPoint, vol.Percent, state))
	}
	obs.Infof("decryption progress: %s", strings.Join(parts, ", "))
}
