package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// GetInterfaceByID resolves a network interface from its full resource id.
// The VM's network profile references NICs by id only, and after the source
// VM is deleted the id is the sole remaining handle.
func (c *RealClient) GetInterfaceByID(ctx context.Context, id string) (*armnetwork.Interface, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid network interface resource id %s: %w", id, err)
	}

	resp, err := c.nics.Get(ctx, rid.ResourceGroupName, rid.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get network interface %s: %w", rid.Name, err)
	}
	return &resp.Interface, nil
}
