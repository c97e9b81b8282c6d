package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armfeatures"
)

// RegisterFeature requests registration of a platform feature on the
// subscription and returns the resulting state. Registration is asynchronous;
// callers poll FeatureState until it reports "Registered".
func (c *RealClient) RegisterFeature(ctx context.Context, namespace, name string) (string, error) {
	resp, err := c.features.Register(ctx, namespace, name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to register feature %s/%s: %w", namespace, name, err)
	}
	return featureState(&resp.FeatureResult), nil
}

// FeatureState returns the current registration state of a platform feature.
func (c *RealClient) FeatureState(ctx context.Context, namespace, name string) (string, error) {
	resp, err := c.features.Get(ctx, namespace, name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get feature %s/%s: %w", namespace, name, err)
	}
	return featureState(&resp.FeatureResult), nil
}

func featureState(result *armfeatures.FeatureResult) string {
	if result == nil || result.Properties == nil || result.Properties.State == nil {
		return ""
	}
	return *result.Properties.State
}
