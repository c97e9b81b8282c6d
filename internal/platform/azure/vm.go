package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"

	"github.com/eahctl/eahctl/internal/util/retry"
)

// GetVM returns the VM with the given name, or nil if it does not exist.
func (c *RealClient) GetVM(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachine, error) {
	resp, err := c.vms.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get VM %s: %w", name, err)
	}
	return &resp.VirtualMachine, nil
}

// CreateVM creates a VM and blocks until the provisioning operation finishes.
func (c *RealClient) CreateVM(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
	poller, err := c.vms.BeginCreateOrUpdate(ctx, resourceGroup, name, vm, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create VM %s: %w", name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for VM %s creation: %w", name, err)
	}
	return &resp.VirtualMachine, nil
}

// UpdateVM applies a partial update and blocks until it finishes.
func (c *RealClient) UpdateVM(ctx context.Context, resourceGroup, name string, update armcompute.VirtualMachineUpdate) error {
	poller, err := c.vms.BeginUpdate(ctx, resourceGroup, name, update, nil)
	if err != nil {
		return fmt.Errorf("failed to update VM %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for VM %s update: %w", name, err)
	}
	return nil
}

// DeallocateVM stops the VM and releases its compute allocation.
func (c *RealClient) DeallocateVM(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.vms.BeginDeallocate(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to deallocate VM %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for VM %s deallocation: %w", name, err)
	}
	return nil
}

// StartVM powers the VM on.
func (c *RealClient) StartVM(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.vms.BeginStart(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to start VM %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for VM %s start: %w", name, err)
	}
	return nil
}

// RestartVM reboots the VM.
func (c *RealClient) RestartVM(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.vms.BeginRestart(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to restart VM %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to wait for VM %s restart: %w", name, err)
	}
	return nil
}

// DeleteVM deletes the VM resource. The operation is idempotent and retried
// while another operation holds a lock on the VM.
func (c *RealClient) DeleteVM(ctx context.Context, resourceGroup, name string) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		poller, err := c.vms.BeginDelete(ctx, resourceGroup, name, nil)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(fmt.Errorf("failed to delete VM %s: %w", name, err))
		}
		if _, err := poller.PollUntilDone(ctx, nil); err != nil {
			return retry.Fatal(fmt.Errorf("failed to wait for VM %s deletion: %w", name, err))
		}
		return nil
	})
}

// PowerState returns the VM power state, e.g. "running" or "deallocated".
func (c *RealClient) PowerState(ctx context.Context, resourceGroup, name string) (string, error) {
	resp, err := c.vms.Get(ctx, resourceGroup, name, &armcompute.VirtualMachinesClientGetOptions{
		Expand: to.Ptr(armcompute.InstanceViewTypesInstanceView),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get instance view for VM %s: %w", name, err)
	}

	if resp.Properties == nil || resp.Properties.InstanceView == nil {
		return "", fmt.Errorf("VM %s has no instance view", name)
	}

	for _, status := range resp.Properties.InstanceView.Statuses {
		if status == nil || status.Code == nil {
			continue
		}
		if state, ok := strings.CutPrefix(*status.Code, "PowerState/"); ok {
			return state, nil
		}
	}
	return "", fmt.Errorf("VM %s reports no power state", name)
}
