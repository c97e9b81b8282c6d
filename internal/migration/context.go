package migration

import (
	"context"

	"github.com/eahctl/eahctl/internal/copytool"
	"github.com/eahctl/eahctl/internal/platform/azure"
)

// State holds the shared results of migration phases. It is progressively
// populated as each phase completes; later phases work only from this state
// and the frozen source snapshot, never from re-read platform data.
type State struct {
	// Preflight results
	Source       *SourceVM
	Domain       *DomainInfo
	ResolvedSize string
	CopyToolPath string

	// Placement results
	Placement Placement

	// Clone results
	OSDiskClone *DiskSpec
	DataDisks   []DataDiskSource
	ClonedData  []ClonedDataDisk

	// NIC reclamation results
	NICs []ReclaimedNIC

	// Build results
	BuildSkipped bool

	// Finish results
	EncryptionVerified bool
	VolumeReport       string
}

// NewState creates an empty migration state.
func NewState() *State {
	return &State{}
}

// Context wraps all dependencies and state needed by a migration phase.
type Context struct {
	context.Context
	Options  *Options
	State    *State
	Platform azure.ResourceManager
	Copier   copytool.Runner
	Observer Observer
	Clock    Clock
}

// NewContext creates a new migration context.
func NewContext(
	ctx context.Context,
	opts *Options,
	platform azure.ResourceManager,
	copier copytool.Runner,
	observer Observer,
	clock Clock,
) *Context {
	if observer == nil {
		observer = NewConsoleObserver()
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Context{
		Context:  ctx,
		Options:  opts,
		State:    NewState(),
		Platform: platform,
		Copier:   copier,
		Observer: observer,
		Clock:    clock,
	}
}
