package migration

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eahctl/eahctl/internal/util/naming"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "24h" or "90m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Options holds all run parameters. Flags take precedence over values loaded
// from an options file.
type Options struct {
	SubscriptionID string `yaml:"subscriptionId"`
	ResourceGroup  string `yaml:"resourceGroup"`
	SourceVMName   string `yaml:"sourceVm"`
	NewVMName      string `yaml:"newVm"`

	// NewOSDiskName defaults to "<source>-OSDisk-EAH".
	NewOSDiskName string `yaml:"newOsDiskName"`

	// VMSize defaults to the source VM's size.
	VMSize string `yaml:"vmSize"`

	IncludeDataDisks  bool   `yaml:"includeDataDisks"`
	CopyToolPath      string `yaml:"copyToolPath"`
	DryRun            bool   `yaml:"dryRun"`
	ValidatePlacement bool   `yaml:"validatePlacement"`

	// AdminUsername/AdminPassword enable the image-rebuild build strategy.
	AdminUsername string `yaml:"adminUsername"`
	AdminPassword string `yaml:"adminPassword"`

	// SASDuration bounds the disk access grants issued per clone.
	SASDuration Duration `yaml:"sasDuration"`
}

// LoadOptionsFile reads options from a YAML file with strict field checking.
func LoadOptionsFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	opts := &Options{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil {
		return nil, fmt.Errorf("failed to parse options file %s: %w", path, err)
	}
	return opts, nil
}

// ApplyDefaults fills derived defaults after all sources are merged.
func (o *Options) ApplyDefaults() {
	if o.NewOSDiskName == "" && o.SourceVMName != "" {
		o.NewOSDiskName = naming.OSDiskClone(o.SourceVMName)
	}
	if o.SASDuration == 0 {
		o.SASDuration = Duration(24 * time.Hour)
	}
	if o.SubscriptionID == "" {
		o.SubscriptionID = os.Getenv("AZURE_SUBSCRIPTION_ID")
	}
}

// Validate checks required parameters.
func (o *Options) Validate() error {
	if o.SubscriptionID == "" {
		return fmt.Errorf("subscription id is required (flag --subscription or AZURE_SUBSCRIPTION_ID)")
	}
	if o.ResourceGroup == "" {
		return fmt.Errorf("resource group is required")
	}
	if o.SourceVMName == "" {
		return fmt.Errorf("source VM name is required")
	}
	if o.NewVMName == "" {
		return fmt.Errorf("new VM name is required")
	}
	if o.NewVMName == o.SourceVMName {
		return fmt.Errorf("new VM name must differ from the source VM name")
	}
	if (o.AdminUsername == "") != (o.AdminPassword == "") {
		return fmt.Errorf("admin username and password must be provided together")
	}
	return nil
}

// HasAdminCredential reports whether an administrator credential was supplied,
// enabling the image-rebuild build strategy.
func (o *Options) HasAdminCredential() bool {
	return o.AdminUsername != "" && o.AdminPassword != ""
}
