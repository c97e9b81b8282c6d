package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"

	"github.com/eahctl/eahctl/internal/util/retry"
)

// GetDisk returns the disk with the given name, or nil if it does not exist.
func (c *RealClient) GetDisk(ctx context.Context, resourceGroup, name string) (*armcompute.Disk, error) {
	resp, err := c.disks.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get disk %s: %w", name, err)
	}
	return &resp.Disk, nil
}

// GetDiskByID resolves a disk from its full resource id. Data disk references
// on a VM carry ids, not names, and the disk may live in a different resource
// group than the VM.
func (c *RealClient) GetDiskByID(ctx context.Context, id string) (*armcompute.Disk, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid disk resource id %s: %w", id, err)
	}

	resp, err := c.disks.Get(ctx, rid.ResourceGroupName, rid.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk %s: %w", rid.Name, err)
	}
	return &resp.Disk, nil
}

// CreateDisk provisions a disk and blocks until it is ready.
func (c *RealClient) CreateDisk(ctx context.Context, resourceGroup, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
	poller, err := c.disks.BeginCreateOrUpdate(ctx, resourceGroup, name, disk, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk %s: %w", name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for disk %s creation: %w", name, err)
	}
	return &resp.Disk, nil
}

// GrantDiskAccess issues a time-boxed SAS endpoint for the disk. Conflicts
// from a still-pending earlier export are retried.
func (c *RealClient) GrantDiskAccess(ctx context.Context, resourceGroup, name string, level armcompute.AccessLevel, duration time.Duration) (string, error) {
	var sas string

	err := retry.WithExponentialBackoff(ctx, func() error {
		poller, err := c.disks.BeginGrantAccess(ctx, resourceGroup, name, armcompute.GrantAccessData{
			Access:            to.Ptr(level),
			DurationInSeconds: to.Ptr(int32(duration.Seconds())),
		}, nil)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(fmt.Errorf("failed to grant access on disk %s: %w", name, err))
		}

		resp, err := poller.PollUntilDone(ctx, nil)
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to wait for disk %s access grant: %w", name, err))
		}
		if resp.AccessSAS == nil || *resp.AccessSAS == "" {
			return retry.Fatal(fmt.Errorf("disk %s access grant returned no SAS endpoint", name))
		}
		sas = *resp.AccessSAS
		return nil
	})
	if err != nil {
		return "", err
	}
	return sas, nil
}

// RevokeDiskAccess revokes a granted SAS endpoint. The operation is
// idempotent: revoking a disk without an active grant succeeds.
func (c *RealClient) RevokeDiskAccess(ctx context.Context, resourceGroup, name string) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		poller, err := c.disks.BeginRevokeAccess(ctx, resourceGroup, name, nil)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(fmt.Errorf("failed to revoke access on disk %s: %w", name, err))
		}
		if _, err := poller.PollUntilDone(ctx, nil); err != nil {
			return retry.Fatal(fmt.Errorf("failed to wait for disk %s access revocation: %w", name, err))
		}
		return nil
	})
}
