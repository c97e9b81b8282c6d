package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/marketplaceordering/armmarketplaceordering"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armfeatures"
)

// managementScope is the token scope used for the authentication probe.
const managementScope = "https://management.azure.com/.default"

// RealClient implements ResourceManager using the Azure Resource Manager API.
type RealClient struct {
	cred       azcore.TokenCredential
	vms        *armcompute.VirtualMachinesClient
	extensions *armcompute.VirtualMachineExtensionsClient
	disks      *armcompute.DisksClient
	skus       *armcompute.ResourceSKUsClient
	nics       *armnetwork.InterfacesClient
	features   *armfeatures.Client
	agreements *armmarketplaceordering.MarketplaceAgreementsClient
}

// ClientOption configures a RealClient.
type ClientOption func(*clientSettings)

type clientSettings struct {
	armOptions *arm.ClientOptions
}

// WithARMOptions sets custom ARM client options (cloud configuration,
// custom transport for tests).
func WithARMOptions(o *arm.ClientOptions) ClientOption {
	return func(s *clientSettings) {
		s.armOptions = o
	}
}

// NewRealClient creates a RealClient bound to one subscription.
func NewRealClient(subscriptionID string, cred azcore.TokenCredential, opts ...ClientOption) (*RealClient, error) {
	settings := &clientSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual machines client: %w", err)
	}
	extensions, err := armcompute.NewVirtualMachineExtensionsClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create extensions client: %w", err)
	}
	disks, err := armcompute.NewDisksClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create disks client: %w", err)
	}
	skus, err := armcompute.NewResourceSKUsClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource SKUs client: %w", err)
	}
	nics, err := armnetwork.NewInterfacesClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create interfaces client: %w", err)
	}
	features, err := armfeatures.NewClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create features client: %w", err)
	}
	agreements, err := armmarketplaceordering.NewMarketplaceAgreementsClient(subscriptionID, cred, settings.armOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace agreements client: %w", err)
	}

	return &RealClient{
		cred:       cred,
		vms:        vms,
		extensions: extensions,
		disks:      disks,
		skus:       skus,
		nics:       nics,
		features:   features,
		agreements: agreements,
	}, nil
}

// CheckAuth verifies the credential can mint a management-plane token.
func (c *RealClient) CheckAuth(ctx context.Context) error {
	_, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{managementScope},
	})
	if err != nil {
		return fmt.Errorf("failed to acquire management token: %w", err)
	}
	return nil
}
