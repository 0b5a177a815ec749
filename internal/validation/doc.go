// Package validation runs static rule checks over generated firmware artifacts.
//
// # Overview
//
// Five independent validators scan an immutable artifact snapshot:
//
//  1. LayerSeparation - API-layer code reaches hardware only through HAL_* calls
//  2. NonBlocking - no delays anywhere, no infinite loops outside the entry function
//  3. StateMachine - long timing-driven functions dispatch on a static state variable
//  4. Dependency - every EMIC:setInput reference resolves and scripts form no cycle
//  5. BackwardsCompatibility - optional registrations and functions are guarded
//
// The checks are line oriented. Comments and string or character literals are
// blanked before brace counting and pattern matching, so a brace inside a
// string does not move function boundaries.
//
// # Usage
//
//	validators := validation.DefaultValidators(validation.Options{
//	    EntryFunction: "main",
//	    Inventory:     snapshot, // optional
//	})
//	coord := validation.NewCoordinator(logger, recorder, validators...)
//
//	report, err := coord.Run(ctx, artifacts)
//	if errors.Is(err, validation.ErrCancelled) {
//	    return err
//	}
//	fmt.Print(report.Summary())
//
// # Error Handling
//
// Issues are Warning (advisory) or Error (blocks acceptance). A validator that
// returns an error or panics does not abort the run: its outcome carries one
// ValidatorException issue and the remaining validators still run, so the
// report always holds one outcome per registered validator. Cancellation is
// checked before each validator and is the only error Run returns.
package validation
