package validation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/inventory"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// Validator is one independent rule check over an artifact snapshot.
// Validators must not modify artifact content.
type Validator interface {
	// Name identifies the validator in outcomes and logs.
	Name() string
	// Validate scans the snapshot and reports issues.
	Validate(ctx context.Context, artifacts *models.ArtifactSet) (*models.ValidationOutcome, error)
}

// Options configures the default validator set.
type Options struct {
	// EntryFunction is the designated super-loop entry function. Defaults to "main".
	EntryFunction string
	// BodyLineThreshold is the function length above which timing code should be a
	// state machine. Defaults to 20.
	BodyLineThreshold int
	// Inventory is the optional SDK inventory used to verify references.
	Inventory *inventory.Snapshot
	// Disabled lists validator names that are not registered.
	Disabled []string
	// Logger receives per-validator debug output.
	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.EntryFunction == "" {
		o.EntryFunction = "main"
	}
	if o.BodyLineThreshold <= 0 {
		o.BodyLineThreshold = 20
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// DefaultValidators returns the rule validators in their fixed run order,
// minus any named in opts.Disabled.
func DefaultValidators(opts Options) []Validator {
	opts = opts.withDefaults()
	all := []Validator{
		NewLayerSeparation(),
		NewNonBlocking(opts.EntryFunction),
		NewStateMachine(opts.EntryFunction, opts.BodyLineThreshold),
		NewDependency(opts.Inventory, opts.Logger),
		NewBackwardsCompatibility(),
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[strings.ToLower(strings.TrimSpace(name))] = true
	}

	out := make([]Validator, 0, len(all))
	for _, v := range all {
		if disabled[strings.ToLower(v.Name())] {
			opts.Logger.Debugw("validator disabled", "validator", v.Name())
			continue
		}
		out = append(out, v)
	}
	return out
}

// checkCancelled returns ctx.Err() wrapped as ErrCancelled when ctx is done.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx.Err())
	default:
		return nil
	}
}
