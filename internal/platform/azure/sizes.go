package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

// ListVMSizes returns the virtual machine SKUs available in a location,
// including capability flags and per-location zone support.
func (c *RealClient) ListVMSizes(ctx context.Context, location string) ([]*armcompute.ResourceSKU, error) {
	pager := c.skus.NewListPager(&armcompute.ResourceSKUsClientListOptions{
		Filter: to.Ptr(fmt.Sprintf("location eq '%s'", location)),
	})

	var sizes []*armcompute.ResourceSKU
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list VM sizes in %s: %w", location, err)
		}
		for _, sku := range page.Value {
			if sku == nil || sku.ResourceType == nil {
				continue
			}
			if !strings.EqualFold(*sku.ResourceType, "virtualMachines") {
				continue
			}
			sizes = append(sizes, sku)
		}
	}
	return sizes, nil
}
