package migration

// StopSourcePhase deallocates the source VM so its disks can be exported
// with stable bytes. This is the last phase before destructive steps begin.
type StopSourcePhase struct{}

// NewStopSourcePhase creates the stop-source phase.
func NewStopSourcePhase() *StopSourcePhase {
	return &StopSourcePhase{}
}

// Name implements the Phase interface.
func (p *StopSourcePhase) Name() string {
	return "stop-source"
}

// Run implements the Phase interface.
func (p *StopSourcePhase) Run(ctx *Context) error {
	source := ctx.State.Source

	if ctx.Options.DryRun {
		ctx.Observer.Planf("would deallocate source VM %s", source.Name)
		return nil
	}

	ctx.Observer.Infof("deallocating source VM %s", source.Name)
	return ctx.Platform.DeallocateVM(ctx, source.ResourceGroup, source.Name)
}
