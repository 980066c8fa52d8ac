// Package batch drives resolve-then-mutate over a set of identifiers,
// isolating per-item failures so one bad identifier never halts the rest.
package batch

import (
	"context"
	"errors"
	"sort"

	"github.com/marrowsec/bloodowned/internal/principal"
)

// Resolver resolves one raw identifier to a canonical principal.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (principal.Resolved, error)
}

// Store toggles the owned flag on a resolved principal.
type Store interface {
	Mark(ctx context.Context, name string, t principal.Type) (bool, error)
	Unmark(ctx context.Context, name string, t principal.Type) (bool, error)
}

// Outcome is the per-identifier result record.
type Outcome struct {
	Identifier string
	Name       string // canonical name, empty when resolution failed
	Type       principal.Type
	Removed    bool // unmark instead of mark
	Changed    bool
	Err        error // NotFoundError or AmbiguousError; nil on success
}

// Coordinator processes identifiers sequentially against one resolver
// and one store. Sequential processing keeps error attribution
// unambiguous and avoids contention on the single session.
type Coordinator struct {
	Resolver Resolver
	Store    Store
}

// Process deduplicates identifiers as literal strings, sorts them for a
// deterministic order, and runs resolve then mark/unmark for each.
// Resolution failures are recorded in the item's Outcome and the loop
// continues. Any other error is fatal: Process returns the outcomes
// accumulated so far plus the error. Mutations already applied stay
// committed; there is no cross-identifier transaction.
func (c *Coordinator) Process(ctx context.Context, identifiers []string, remove bool) ([]Outcome, error) {
	targets := dedupe(identifiers)
	outcomes := make([]Outcome, 0, len(targets))

	for _, id := range targets {
		out := Outcome{Identifier: id, Removed: remove}

		resolved, err := c.Resolver.Resolve(ctx, id)
		if err != nil {
			if !isResolutionError(err) {
				return outcomes, err
			}
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}
		out.Name = resolved.Name
		out.Type = resolved.Type

		var changed bool
		if remove {
			changed, err = c.Store.Unmark(ctx, resolved.Name, resolved.Type)
		} else {
			changed, err = c.Store.Mark(ctx, resolved.Name, resolved.Type)
		}
		if err != nil {
			return outcomes, err
		}
		out.Changed = changed
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// isResolutionError reports whether err is recoverable per item.
// Everything else (connectivity, unexpected driver failures) escapes to
// the top level and ends the invocation.
func isResolutionError(err error) bool {
	var notFound *principal.NotFoundError
	var ambiguous *principal.AmbiguousError
	return errors.As(err, &notFound) || errors.As(err, &ambiguous)
}

// dedupe removes duplicate literal strings and returns the remainder
// sorted ascending.
func dedupe(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	var out []string
	for _, id := range identifiers {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
