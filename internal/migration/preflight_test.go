package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflightPhase_RegistersFeatureAndWaits(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()

	var registerCalls, stateProbes int
	mock.RegisterFeatureFunc = func(_ context.Context, namespace, name string) (string, error) {
		registerCalls++
		assert.Equal(t, "Microsoft.Compute", namespace)
		assert.Equal(t, "EncryptionAtHost", name)
		return "Registering", nil
	}
	mock.FeatureStateFunc = func(_ context.Context, _, _ string) (string, error) {
		stateProbes++
		if stateProbes < 4 {
			return "Registering", nil
		}
		return "Registered", nil
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	err := NewPreflightPhase().Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, registerCalls)
	assert.Equal(t, 4, stateProbes)
}

func TestPreflightPhase_TransientFeatureProbeFailuresAreRetried(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()

	mock.RegisterFeatureFunc = func(_ context.Context, _, _ string) (string, error) {
		return "Registering", nil
	}
	var stateProbes int
	mock.FeatureStateFunc = func(_ context.Context, _, _ string) (string, error) {
		stateProbes++
		switch stateProbes {
		case 1:
			return "NotRegistered", nil
		case 2, 3:
			return "", errors.New("429 too many requests")
		default:
			return "Registered", nil
		}
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	err := NewPreflightPhase().Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, stateProbes)
}

func TestPreflightPhase_FeatureRegistrationDeadline(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()

	var registerCalls int
	mock.RegisterFeatureFunc = func(_ context.Context, _, _ string) (string, error) {
		registerCalls++
		return "Registering", nil
	}
	mock.FeatureStateFunc = func(_ context.Context, _, _ string) (string, error) {
		// Never converges; the fake clock walks the wait to its deadline.
		return "Registering", nil
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	err := NewPreflightPhase().Run(ctx)

	require.Error(t, err)
	assert.Equal(t, ExitFeatureRegistration, ExitCode(err))
	assert.Contains(t, err.Error(), "did not reach Registered")
	assert.Equal(t, 1, registerCalls)
}

func TestPreflightPhase_DryRunSkipsFeatureRegistration(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()

	mock.RegisterFeatureFunc = func(_ context.Context, _, _ string) (string, error) {
		t.Fatal("dry run must not register features")
		return "", nil
	}
	mock.FeatureStateFunc = func(_ context.Context, _, _ string) (string, error) {
		return "NotRegistered", nil
	}

	opts := testOptions(t)
	opts.DryRun = true
	ctx := newTestContext(t, opts, mock, nil)

	require.NoError(t, NewPreflightPhase().Run(ctx))
}
