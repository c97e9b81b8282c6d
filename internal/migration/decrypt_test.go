package migration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bdeStatusConverting = `
BitLocker Drive Encryption: Configuration Tool version 10.0.20348
Copyright (C) 2013 Microsoft Corporation. All rights reserved.

Volume C: [Windows]
[OS Volume]

    Size:                 126.45 GB
    Conversion Status:    Decryption in Progress
    Percentage Encrypted: 42.7%
    Encryption Method:    XTS-AES 256

Volume D: [Data]
[Data Volume]

    Size:                 255.98 GB
    Conversion Status:    Fully Decrypted
    Percentage Encrypted: 0.0%
`

const bdeStatusDone = `
Volume C: [Windows]
[OS Volume]

    Conversion Status:    Fully Decrypted
    Percentage Encrypted: 0.0%

Volume D: [Data]
[Data Volume]

    Conversion Status:    Fully Decrypted
    Percentage Encrypted: 0.0%
`

func TestParseVolumeStatus(t *testing.T) {
	t.Parallel()
	volumes := ParseVolumeStatus(bdeStatusConverting)

	require.Len(t, volumes, 2)

	assert.Equal(t, "C:", volumes[0].MountPoint)
	assert.True(t, volumes[0].IsOS)
	assert.True(t, volumes[0].InProgress)
	assert.False(t, volumes[0].FullyDecrypted)
	assert.InDelta(t, 42.7, volumes[0].Percent, 0.001)

	assert.Equal(t, "D:", volumes[1].MountPoint)
	assert.False(t, volumes[1].IsOS)
	assert.False(t, volumes[1].InProgress)
	assert.True(t, volumes[1].FullyDecrypted)
	assert.Zero(t, volumes[1].Percent)
}

func TestParseVolumeStatus_CommaDecimalSeparator(t *testing.T) {
	t.Parallel()
	out := `
Volume C: [Windows]
[OS Volume]
    Conversion Status:    Decryption in Progress
    Percentage Encrypted: 3,4%
`
	volumes := ParseVolumeStatus(out)

	require.Len(t, volumes, 1)
	assert.InDelta(t, 3.4, volumes[0].Percent, 0.001)
}

func TestParseVolumeStatus_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ParseVolumeStatus(""))
	assert.Empty(t, ParseVolumeStatus("no volumes here"))
}

func TestDecryptionComplete_OSScope(t *testing.T) {
	t.Parallel()
	scope := EncryptionScope{OSEncrypted: true}

	tests := []struct {
		name   string
		volume VolumeStatus
		want   bool
	}{
		{
			name:   "terminal marker and zero percent",
			volume: VolumeStatus{IsOS: true, FullyDecrypted: true, Percent: 0.0},
			want:   true,
		},
		{
			name: "terminal marker but residual percent",
			// A last sliver may still be reported after the status flips;
			// 0.1% must keep the wait alive.
			volume: VolumeStatus{IsOS: true, FullyDecrypted: true, Percent: 0.1},
			want:   false,
		},
		{
			name:   "zero percent without terminal marker",
			volume: VolumeStatus{IsOS: true, FullyDecrypted: false, Percent: 0.0},
			want:   false,
		},
		{
			name:   "data volume done does not satisfy OS scope",
			volume: VolumeStatus{IsOS: false, FullyDecrypted: true, Percent: 0.0},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, decryptionComplete(scope, []VolumeStatus{tt.volume}))
		})
	}
}

func TestDecryptionComplete_AllScope(t *testing.T) {
	t.Parallel()
	scope := EncryptionScope{OSEncrypted: true, DataEncrypted: true}

	done := []VolumeStatus{
		{IsOS: true, FullyDecrypted: true, Percent: 0},
		{IsOS: false, FullyDecrypted: true, Percent: 0},
	}
	assert.True(t, decryptionComplete(scope, done))

	oneConverting := []VolumeStatus{
		{IsOS: true, FullyDecrypted: true, Percent: 0},
		{IsOS: false, InProgress: true, Percent: 12.5},
	}
	assert.False(t, decryptionComplete(scope, oneConverting))

	residualPercent := []VolumeStatus{
		{IsOS: true, Percent: 0},
		{IsOS: false, Percent: 0.1},
	}
	assert.False(t, decryptionComplete(scope, residualPercent))
}

func TestDecryptPhase_WaitsUntilDecrypted(t *testing.T) {
	t.Parallel()
	mock, rec := newTestMock()

	var statusProbes int
	mock.RunCommandFunc = func(_ context.Context, _, _ string, script []string) (string, error) {
		switch {
		case contains(script, "Get-BitLockerVolume"):
			return `[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"}]`, nil
		case contains(script, "manage-bde"):
			statusProbes++
			if statusProbes < 3 {
				return bdeStatusConverting, nil
			}
			return bdeStatusDone, nil
		default:
			return "", nil
		}
	}

	removed := 0
	mock.RemoveEncryptionExtensionFunc = func(_ context.Context, _, _ string) error {
		removed++
		return nil
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	ctx.State.Source = mustSourceVM(t)

	phase := &DecryptPhase{Interval: time.Second, Deadline: time.Hour}
	err := phase.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, statusProbes)
	assert.Equal(t, []string{"vm-a:OS"}, rec.Disabled)
	assert.Equal(t, 1, removed)
}

func TestDecryptPhase_DisableRunsExactlyOnce(t *testing.T) {
	t.Parallel()
	mock, rec := newTestMock()
	mock.RunCommandFunc = func(_ context.Context, _, _ string, script []string) (string, error) {
		if contains(script, "Get-BitLockerVolume") {
			return `[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"},
				{"MountPoint": "D:", "VolumeType": "Data", "VolumeStatus": "FullyEncrypted"}]`, nil
		}
		return bdeStatusDone, nil
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	ctx.State.Source = mustSourceVM(t)

	phase := &DecryptPhase{Interval: time.Second, Deadline: time.Hour}
	require.NoError(t, phase.Run(ctx))

	assert.Equal(t, []string{"vm-a:All"}, rec.Disabled)
}

func TestDecryptPhase_TransientProbeFailuresAreRetried(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()

	var statusProbes int
	mock.RunCommandFunc = func(_ context.Context, _, _ string, script []string) (string, error) {
		switch {
		case contains(script, "Get-BitLockerVolume"):
			return `{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "EncryptionInProgress"}`, nil
		case contains(script, "manage-bde"):
			statusProbes++
			if statusProbes == 1 {
				return "", errors.New("guest agent busy")
			}
			return bdeStatusDone, nil
		default:
			return "", nil
		}
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	ctx.State.Source = mustSourceVM(t)

	phase := &DecryptPhase{Interval: time.Second, Deadline: time.Hour}
	err := phase.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, statusProbes)
}

func TestDecryptPhase_DeadlineAborts(t *testing.T) {
	t.Parallel()
	mock, _ := newTestMock()
	mock.RunCommandFunc = func(_ context.Context, _, _ string, script []string) (string, error) {
		if contains(script, "Get-BitLockerVolume") {
			return `{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"}`, nil
		}
		return bdeStatusConverting, nil
	}

	ctx := newTestContext(t, testOptions(t), mock, nil)
	ctx.State.Source = mustSourceVM(t)

	phase := &DecryptPhase{Interval: time.Minute, Deadline: 5 * time.Minute}
	err := phase.Run(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not complete")
}

func TestDecryptPhase_SkipsWhenNothingEncrypted(t *testing.T) {
	t.Parallel()
	mock, rec := newTestMock()
	ctx := newTestContext(t, testOptions(t), mock, nil)
	ctx.State.Source = mustSourceVM(t)

	phase := NewDecryptPhase()
	require.NoError(t, phase.Run(ctx))

	assert.Empty(t, rec.Disabled)
}

// contains reports whether any script line mentions the marker.
func contains(script []string, marker string) bool {
	for _, line := range script {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// mustSourceVM freezes the standard test VM fixture.
func mustSourceVM(t *testing.T) *SourceVM {
	t.Helper()
	source, err := NewSourceVM(testResourceGroup, testVM())
	require.NoError(t, err)
	return source
}
