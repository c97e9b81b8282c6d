package migration

import (
	"fmt"
	"time"

	"github.com/eahctl/eahctl/internal/util/prerequisites"
)

const (
	featureNamespace = "Microsoft.Compute"
	featureName      = "EncryptionAtHost"

	featurePollInterval = 5 * time.Second
	featurePollDeadline = 30 * time.Minute
)

// PreflightPhase validates every precondition before any mutation and
// freezes the source VM snapshot the rest of the run works from.
type PreflightPhase struct{}

// NewPreflightPhase creates the preflight phase.
func NewPreflightPhase() *PreflightPhase {
	return &PreflightPhase{}
}

// Name implements the Phase interface.
func (p *PreflightPhase) Name() string {
	return "preflight"
}

// Run implements the Phase interface.
func (p *PreflightPhase) Run(ctx *Context) error {
	opts := ctx.Options

	if err := ctx.Platform.CheckAuth(ctx); err != nil {
		return Exitf(ExitNotAuthenticated, "no authenticated session: %v", err)
	}
	ctx.Observer.Okf("authenticated session verified")

	if opts.DryRun {
		ctx.Observer.Planf("would verify copy tool availability")
	} else {
		toolPath, err := prerequisites.ResolveCopyTool(opts.CopyToolPath)
		if err != nil {
			return Exitf(ExitCopyToolMissing, "copy tool unavailable: %v", err)
		}
		ctx.State.CopyToolPath = toolPath
		ctx.Observer.Okf("copy tool found at %s", toolPath)
	}

	if err := p.ensureFeatureRegistered(ctx); err != nil {
		return err
	}

	vm, err := ctx.Platform.GetVM(ctx, opts.ResourceGroup, opts.SourceVMName)
	if err != nil {
		return fmt.Errorf("failed to read source VM: %w", err)
	}
	if vm == nil {
		return Exitf(ExitSourceVMNotFound, "source VM %s not found in resource group %s", opts.SourceVMName, opts.ResourceGroup)
	}

	source, err := NewSourceVM(opts.ResourceGroup, vm)
	if err != nil {
		return fmt.Errorf("failed to read source VM: %w", err)
	}

	if source.EncryptionAtHost {
		return Exitf(ExitAlreadyEncrypted, "VM %s already has encryption at host enabled, nothing to do", source.Name)
	}
	if source.OSDiskName == "" || source.OSDiskID == "" {
		return Exitf(ExitNoOSDisk, "VM %s has no managed OS disk", source.Name)
	}
	if len(source.NICs) == 0 {
		return Exitf(ExitNoNetworkInterfaces, "VM %s has no network interfaces", source.Name)
	}

	ctx.State.Source = source
	ctx.State.ResolvedSize = source.Size
	if opts.VMSize != "" {
		ctx.State.ResolvedSize = opts.VMSize
	}
	ctx.Observer.Infof("source VM %s frozen: size=%s osDisk=%s dataDisks=%d nics=%d",
		source.Name, ctx.State.ResolvedSize, source.OSDiskName, len(source.DataDisks), len(source.NICs))

	if opts.DryRun {
		ctx.Observer.Planf("would capture domain membership from the guest")
		return nil
	}

	domain, err := probeDomainInfo(ctx, source)
	if err != nil {
		// Diagnostic only, never blocks the migration.
		ctx.Observer.Warnf("could not capture domain membership: %v", err)
	} else {
		ctx.State.Domain = domain
	}

	return nil
}

// ensureFeatureRegistered registers the host-encryption platform feature on
// the subscription and blocks until it reports Registered.
func (p *PreflightPhase) ensureFeatureRegistered(ctx *Context) error {
	state, err := ctx.Platform.FeatureState(ctx, featureNamespace, featureName)
	if err != nil {
		return Exitf(ExitFeatureRegistration, "failed to query feature %s: %v", featureName, err)
	}
	if state == "Registered" {
		ctx.Observer.Okf("feature %s/%s already registered", featureNamespace, featureName)
		return nil
	}

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would register feature %s/%s (current state: %s)", featureNamespace, featureName, state)
		return nil
	}

	ctx.Observer.Infof("registering feature %s/%s (current state: %s)", featureNamespace, featureName, state)
	if _, err := ctx.Platform.RegisterFeature(ctx, featureNamespace, featureName); err != nil {
		return Exitf(ExitFeatureRegistration, "failed to register feature %s: %v", featureName, err)
	}

	deadline := ctx.Clock.Now().Add(featurePollDeadline)
	for {
		state, err := ctx.Platform.FeatureState(ctx, featureNamespace, featureName)
		if err != nil {
			ctx.Observer.Warnf("feature state query failed, retrying: %v", err)
		} else if state == "Registered" {
			ctx.Observer.Okf("feature %s/%s registered", featureNamespace, featureName)
			return nil
		} else {
			ctx.Observer.Infof("feature %s/%s state: %s", featureNamespace, featureName, state)
		}

		if ctx.Clock.Now().After(deadline) {
			return Exitf(ExitFeatureRegistration, "feature %s did not reach Registered within %v", featureName, featurePollDeadline)
		}
		if err := ctx.Clock.Sleep(ctx, featurePollInterval); err != nil {
			return Exitf(ExitFeatureRegistration, "feature registration wait cancelled: %v", err)
		}
	}
}

// probeDomainInfo captures the guest's domain membership for the final
// operator checklist.
func probeDomainInfo(ctx *Context, source *SourceVM) (*DomainInfo, error) {
	out, err := ctx.Platform.RunCommand(ctx, source.ResourceGroup, source.Name, []string{
		"Get-CimInstance Win32_ComputerSystem | Select-Object PartOfDomain,Domain,Name | ConvertTo-Json",
	})
	if err != nil {
		return nil, err
	}
	return parseDomainInfo(out)
}
