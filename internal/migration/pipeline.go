package migration

import (
	"errors"
	"fmt"
	"time"
)

// Phase is one sequential step of the migration.
type Phase interface {
	Name() string
	Run(ctx *Context) error
}

// Phases returns the full migration sequence in execution order.
func Phases() []Phase {
	return []Phase{
		NewPreflightPhase(),
		NewPlacementPhase(),
		NewDecryptPhase(),
		NewStopSourcePhase(),
		NewCloneOSDiskPhase(),
		NewCloneDataDisksPhase(),
		NewReclaimNICsPhase(),
		NewBuildPhase(),
		NewFinishPhase(),
	}
}

// RunPhases executes the given phases strictly sequentially. Precondition
// failures keep their specific exit codes; any other failure is wrapped as an
// unexpected failure with the catch-all code.
func RunPhases(ctx *Context, phases []Phase) error {
	start := ctx.Clock.Now()
	ctx.Observer.Infof("Starting migration of %s with %d phases", ctx.Options.SourceVMName, len(phases))

	for i, phase := range phases {
		phaseStart := ctx.Clock.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Infof("[%s] starting", name)

		if err := phase.Run(ctx); err != nil {
			ctx.Observer.Errorf("[%s] failed: %v", name, err)
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				return err
			}
			return &ExitError{
				Code: ExitUnexpected,
				Err:  fmt.Errorf("%s phase failed: %w", phase.Name(), err),
			}
		}

		ctx.Observer.Okf("[%s] completed in %v", name, ctx.Clock.Now().Sub(phaseStart).Round(time.Millisecond))
	}

	ctx.Observer.Okf("Migration completed in %v", ctx.Clock.Now().Sub(start).Round(time.Millisecond))
	return nil
}

// Run executes the whole migration with the default phase sequence.
func Run(ctx *Context) error {
	return RunPhases(ctx, Phases())
}
