package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncryptionScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    EncryptionScope
	}{
		{
			name:    "os volume encrypted",
			payload: `[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"}]`,
			want:    EncryptionScope{OSEncrypted: true},
		},
		{
			name: "os and data encrypted",
			payload: `[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"},
				{"MountPoint": "D:", "VolumeType": "Data", "VolumeStatus": "EncryptionInProgress"}]`,
			want: EncryptionScope{OSEncrypted: true, DataEncrypted: true},
		},
		{
			name:    "nothing encrypted",
			payload: `[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyDecrypted"}]`,
			want:    EncryptionScope{},
		},
		{
			name:    "single object instead of array",
			payload: `{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"}`,
			want:    EncryptionScope{OSEncrypted: true},
		},
		{
			name:    "alternate status key",
			payload: `[{"MountPoint": "D:", "ConversionStatus": "FullyEncrypted"}]`,
			want:    EncryptionScope{DataEncrypted: true},
		},
		{
			name:    "os detected by mount point when type is missing",
			payload: `[{"DriveLetter": "C:", "volumeStatus": "FullyEncrypted"}]`,
			want:    EncryptionScope{OSEncrypted: true},
		},
		{
			name: "noise around the payload",
			payload: "WARNING: provisioning output follows\n" +
				`[{"MountPoint": "C:", "VolumeType": "OperatingSystem", "VolumeStatus": "FullyEncrypted"}]` +
				"\ntrailing agent output",
			want: EncryptionScope{OSEncrypted: true},
		},
		{
			name:    "empty volume list",
			payload: `[]`,
			want:    EncryptionScope{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scope, err := ParseEncryptionScope(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope)
		})
	}
}

func TestParseEncryptionScope_RejectsNonJSON(t *testing.T) {
	t.Parallel()
	_, err := ParseEncryptionScope("the guest agent is not ready")
	require.Error(t, err)
}

func TestEncryptionScope_VolumeType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "OS", EncryptionScope{OSEncrypted: true}.VolumeType())
	assert.Equal(t, "All", EncryptionScope{OSEncrypted: true, DataEncrypted: true}.VolumeType())
	assert.Equal(t, "All", EncryptionScope{DataEncrypted: true}.VolumeType())
	assert.False(t, EncryptionScope{}.Any())
	assert.True(t, EncryptionScope{OSEncrypted: true}.Any())
}

func TestParseDomainInfo(t *testing.T) {
	t.Parallel()

	t.Run("domain joined", func(t *testing.T) {
		t.Parallel()
		info, err := parseDomainInfo(`{"PartOfDomain": true, "Domain": "corp.example.com", "Name": "VM-A"}`)
		require.NoError(t, err)
		assert.True(t, info.PartOfDomain)
		assert.Equal(t, "corp.example.com", info.DomainName)
		assert.Equal(t, "VM-A", info.ComputerName)
	})

	t.Run("workgroup machine reports no domain", func(t *testing.T) {
		t.Parallel()
		info, err := parseDomainInfo(`{"PartOfDomain": false, "Domain": "WORKGROUP", "Name": "VM-A"}`)
		require.NoError(t, err)
		assert.False(t, info.PartOfDomain)
		assert.Empty(t, info.DomainName)
	})

	t.Run("string spelled boolean", func(t *testing.T) {
		t.Parallel()
		info, err := parseDomainInfo(`{"PartOfDomain": "True", "Domain": "corp.example.com", "Name": "VM-A"}`)
		require.NoError(t, err)
		assert.True(t, info.PartOfDomain)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		_, err := parseDomainInfo("")
		require.Error(t, err)
	})
}
