package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

const (
	encryptionExtensionName      = "AzureDiskEncryption"
	encryptionExtensionPublisher = "Microsoft.Azure.Security"
	encryptionExtensionVersion   = "2.2"
)

// RunCommand executes a PowerShell script inside the guest and returns the
// captured output of all streams, concatenated in order.
func (c *RealClient) RunCommand(ctx context.Context, resourceGroup, vmName string, script []string) (string, error) {
	lines := make([]*string, 0, len(script))
	for _, line := range script {
		lines = append(lines, to.Ptr(line))
	}

	poller, err := c.vms.BeginRunCommand(ctx, resourceGroup, vmName, armcompute.RunCommandInput{
		CommandID: to.Ptr("RunPowerShellScript"),
		Script:    lines,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to run command on VM %s: %w", vmName, err)
	}

	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to wait for command on VM %s: %w", vmName, err)
	}

	var out strings.Builder
	for _, status := range resp.Value {
		if status == nil || status.Message == nil {
			continue
		}
		out.WriteString(*status.Message)
		out.WriteString("\n")
	}
	return out.String(), nil
}

// DisableGuestEncryption triggers the guest encryption extension to decrypt
// the given volume scope ("OS" or "All"). The extension accepts the operation
// synchronously; BitLocker decryption then runs inside the guest and is
// observed separately via status polling.
func (c *RealClient) DisableGuestEncryption(ctx context.Context, resourceGroup, vmName, volumeType string) error {
	vm, err := c.GetVM(ctx, resourceGroup, vmName)
	if err != nil {
		return err
	}
	if vm == nil {
		return fmt.Errorf("VM %s not found", vmName)
	}

	poller, err := c.extensions.BeginCreateOrUpdate(ctx, resourceGroup, vmName, encryptionExtensionName, armcompute.VirtualMachineExtension{
		Location: vm.Location,
		Properties: &armcompute.VirtualMachineExtensionProperties{
			Publisher:          to.Ptr(encryptionExtensionPublisher),
			Type:               to.Ptr(encryptionExtensionName),
			TypeHandlerVersion: to.Ptr(encryptionExtensionVersion),
			Settings: map[string]any{
				"EncryptionOperation": "DisableEncryption",
				"VolumeType":          volumeType,
			},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to request encryption disable on VM %s: %w", vmName, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for encryption disable on VM %s: %w", vmName, err)
	}
	return nil
}

// RemoveEncryptionExtension removes the guest encryption extension. Used as
// best-effort cleanup after full decryption; a missing extension is not an
// error.
func (c *RealClient) RemoveEncryptionExtension(ctx context.Context, resourceGroup, vmName string) error {
	poller, err := c.extensions.BeginDelete(ctx, resourceGroup, vmName, encryptionExtensionName, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove encryption extension from VM %s: %w", vmName, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for extension removal on VM %s: %w", vmName, err)
	}
	return nil
}
