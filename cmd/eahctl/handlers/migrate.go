// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the CLI
// framework. External collaborators are created through factory variables so
// tests can substitute them.
package handlers

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/eahctl/eahctl/internal/copytool"
	"github.com/eahctl/eahctl/internal/migration"
	"github.com/eahctl/eahctl/internal/platform/azure"
	"github.com/eahctl/eahctl/internal/util/prerequisites"
)

// MigrateFlags carries the flag values bound by the migrate command. Set
// flags override values loaded from an options file.
type MigrateFlags struct {
	SubscriptionID    string
	ResourceGroup     string
	SourceVM          string
	NewVM             string
	NewOSDiskName     string
	VMSize            string
	IncludeDataDisks  bool
	AzCopyPath        string
	DryRun            bool
	ValidatePlacement bool
	AdminUsername     string
	AdminPassword     string
	SASDuration       time.Duration
}

// Factory function variables - replaced in tests for dependency injection.
var (
	newCredential = func() (azcore.TokenCredential, error) {
		return azidentity.NewDefaultAzureCredential(nil)
	}

	newPlatform = func(subscriptionID string, cred azcore.TokenCredential) (azure.ResourceManager, error) {
		return azure.NewRealClient(subscriptionID, cred)
	}

	resolveCopyTool = prerequisites.ResolveCopyTool

	loadOptionsFile = migration.LoadOptionsFile

	runMigration = migration.Run
)

// Migrate merges flags with the optional options file and runs the full
// migration sequence.
func Migrate(ctx context.Context, configPath string, flags *MigrateFlags) error {
	opts, err := buildOptions(configPath, flags)
	if err != nil {
		return err
	}

	cred, err := newCredential()
	if err != nil {
		return migration.Exitf(migration.ExitNotAuthenticated, "no usable credential: %v", err)
	}
	platform, err := newPlatform(opts.SubscriptionID, cred)
	if err != nil {
		return err
	}

	copier, err := buildCopier(opts)
	if err != nil {
		return err
	}

	return runMigration(migration.NewContext(ctx, opts, platform, copier, nil, nil))
}

// buildOptions merges the options file (if any) with flag values; flags win.
func buildOptions(configPath string, flags *MigrateFlags) (*migration.Options, error) {
	opts := &migration.Options{}
	if configPath != "" {
		loaded, err := loadOptionsFile(configPath)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}

	setString(&opts.SubscriptionID, flags.SubscriptionID)
	setString(&opts.ResourceGroup, flags.ResourceGroup)
	setString(&opts.SourceVMName, flags.SourceVM)
	setString(&opts.NewVMName, flags.NewVM)
	setString(&opts.NewOSDiskName, flags.NewOSDiskName)
	setString(&opts.VMSize, flags.VMSize)
	setString(&opts.CopyToolPath, flags.AzCopyPath)
	setString(&opts.AdminUsername, flags.AdminUsername)
	setString(&opts.AdminPassword, flags.AdminPassword)
	if flags.IncludeDataDisks {
		opts.IncludeDataDisks = true
	}
	if flags.DryRun {
		opts.DryRun = true
	}
	if flags.ValidatePlacement {
		opts.ValidatePlacement = true
	}
	if flags.SASDuration != 0 {
		opts.SASDuration = migration.Duration(flags.SASDuration)
	}

	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// buildCopier resolves the copy tool binary and wraps it. Dry runs never
// invoke the tool, so resolution is skipped and a PATH-relative runner is
// returned as a placeholder.
func buildCopier(opts *migration.Options) (copytool.Runner, error) {
	if opts.DryRun {
		return copytool.New(prerequisites.CopyTool().Name), nil
	}
	path, err := resolveCopyTool(opts.CopyToolPath)
	if err != nil {
		return nil, migration.Exitf(migration.ExitCopyToolMissing, "copy tool unavailable: %v", err)
	}
	opts.CopyToolPath = path
	return copytool.New(path), nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
