package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/marketplaceordering/armmarketplaceordering"
)

// EnsureTermsAccepted accepts the marketplace terms for a plan if they are
// not accepted on the subscription yet. Required before a VM carrying a
// marketplace plan can be created programmatically.
func (c *RealClient) EnsureTermsAccepted(ctx context.Context, publisher, offer, plan string) error {
	resp, err := c.agreements.Get(ctx, armmarketplaceordering.OfferTypeVirtualmachine, publisher, offer, plan, nil)
	if err != nil {
		return fmt.Errorf("failed to get marketplace terms for %s/%s/%s: %w", publisher, offer, plan, err)
	}

	terms := resp.AgreementTerms
	if terms.Properties != nil && terms.Properties.Accepted != nil && *terms.Properties.Accepted {
		return nil
	}

	if terms.Properties == nil {
		terms.Properties = &armmarketplaceordering.AgreementProperties{}
	}
	terms.Properties.Accepted = to.Ptr(true)

	if _, err := c.agreements.Create(ctx, armmarketplaceordering.OfferTypeVirtualmachine, publisher, offer, plan, terms, nil); err != nil {
		return fmt.Errorf("failed to accept marketplace terms for %s/%s/%s: %w", publisher, offer, plan, err)
	}
	return nil
}
