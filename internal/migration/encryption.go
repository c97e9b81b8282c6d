package migration

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncryptionScope reports which volume scopes are guest-encrypted on the
// source VM. It decides whether decryption targets the OS volume only or
// OS and data volumes.
type EncryptionScope struct {
	OSEncrypted   bool
	DataEncrypted bool
}

// VolumeType returns the extension volume-type argument for the scope.
func (s EncryptionScope) VolumeType() string {
	if s.DataEncrypted {
		return "All"
	}
	return "OS"
}

// Any reports whether any volume scope is encrypted at all.
func (s EncryptionScope) Any() bool {
	return s.OSEncrypted || s.DataEncrypted
}

// encryptionStatusScript emits the guest's per-volume encryption status as
// JSON. Output shape varies across guest platform versions; parsing goes
// through normalization only.
const encryptionStatusScript = "Get-BitLockerVolume | Select-Object MountPoint,VolumeType,VolumeStatus,EncryptionPercentage | ConvertTo-Json"

// ParseEncryptionScope normalizes the guest's per-volume status payload.
// Different guest agent versions spell the same fields differently; each
// semantic value is resolved from a fixed list of known alternates, first
// present match wins. Call sites never probe the payload shape themselves.
func ParseEncryptionScope(payload string) (EncryptionScope, error) {
	volumes, err := decodeVolumeObjects(payload)
	if err != nil {
		return EncryptionScope{}, err
	}

	var scope EncryptionScope
	for _, vol := range volumes {
		status := firstString(vol, "VolumeStatus", "volumeStatus", "ConversionStatus", "conversionStatus")
		if !strings.Contains(strings.ToLower(status), "encrypt") || strings.EqualFold(status, "FullyDecrypted") {
			continue
		}
		if isOSVolume(vol) {
			scope.OSEncrypted = true
		} else {
			scope.DataEncrypted = true
		}
	}
	return scope, nil
}

// parseDomainInfo normalizes the guest's computer-system payload.
func parseDomainInfo(payload string) (*DomainInfo, error) {
	objects, err := decodeVolumeObjects(payload)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("guest returned no computer system data")
	}

	obj := objects[0]
	info := &DomainInfo{
		DomainName:   firstString(obj, "Domain", "domain", "DomainName"),
		ComputerName: firstString(obj, "Name", "name", "ComputerName", "CSName"),
	}
	info.PartOfDomain = firstBool(obj, "PartOfDomain", "partOfDomain")

	// Workgroup machines report the workgroup name in the domain field.
	if !info.PartOfDomain {
		info.DomainName = ""
	}
	return info, nil
}

// decodeVolumeObjects tolerates both a single JSON object and an array,
// and ignores any non-JSON noise the guest agent prints around the payload.
func decodeVolumeObjects(payload string) ([]map[string]any, error) {
	trimmed := extractJSON(payload)
	if trimmed == "" {
		return nil, fmt.Errorf("guest output contains no JSON payload")
	}

	if strings.HasPrefix(trimmed, "[") {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil, fmt.Errorf("failed to decode guest payload: %w", err)
		}
		return arr, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("failed to decode guest payload: %w", err)
	}
	return []map[string]any{obj}, nil
}

// extractJSON cuts the first JSON value out of surrounding run-command noise.
func extractJSON(out string) string {
	objStart := strings.IndexAny(out, "[{")
	if objStart < 0 {
		return ""
	}
	var end int
	if out[objStart] == '[' {
		end = strings.LastIndex(out, "]")
	} else {
		end = strings.LastIndex(out, "}")
	}
	if end < objStart {
		return ""
	}
	return out[objStart : end+1]
}

func isOSVolume(vol map[string]any) bool {
	volType := firstString(vol, "VolumeType", "volumeType", "Type")
	if strings.EqualFold(volType, "OperatingSystem") {
		return true
	}
	mount := firstString(vol, "MountPoint", "mountPoint", "DriveLetter", "driveLetter")
	return strings.EqualFold(strings.TrimSuffix(mount, "\\"), "C:")
}

// firstString returns the first present, non-empty string value among the
// given alternate keys.
func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return fmt.Sprintf("%v", t)
			}
		}
	}
	return ""
}

// firstBool returns the first present boolean among the given alternate
// keys, tolerating string spellings.
func firstBool(obj map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			switch t := v.(type) {
			case bool:
				return t
			case string:
				return strings.EqualFold(t, "true")
			}
		}
	}
	return false
}
