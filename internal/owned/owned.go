// Package owned mutates and reads the owned flag on resolved principals.
package owned

import (
	"context"

	"github.com/marrowsec/bloodowned/internal/graph"
	"github.com/marrowsec/bloodowned/internal/principal"
)

// Writer executes a single write query inside its own transaction and
// reports whether the database registered any change.
type Writer interface {
	WriteRow(ctx context.Context, query string, params map[string]any) (graph.Row, bool, error)
}

const (
	setOwnedUserQuery = `MATCH (n:User)
WHERE toUpper(n.name) = toUpper($name)
WITH n
SET n.owned = $owned
RETURN count(n) AS updated`

	setOwnedComputerQuery = `MATCH (n:Computer)
WHERE toUpper(n.name) = toUpper($name)
WITH n
SET n.owned = $owned
RETURN count(n) AS updated`
)

func setOwnedQuery(t principal.Type) string {
	if t == principal.TypeComputer {
		return setOwnedComputerQuery
	}
	return setOwnedUserQuery
}

// Store performs idempotent mark/unmark writes. Each call is one
// isolated atomic write; there is no rollback across calls.
type Store struct {
	db Writer
}

func NewStore(db Writer) *Store {
	return &Store{db: db}
}

// Mark sets owned = true on the named principal. It returns false only
// when no node of that name and type exists, e.g. deleted between
// resolution and mutation. Re-marking an already-owned principal still
// reports true because the write always executes.
func (s *Store) Mark(ctx context.Context, name string, t principal.Type) (bool, error) {
	return s.setOwned(ctx, name, t, true)
}

// Unmark clears the owned flag. Same change semantics as Mark.
func (s *Store) Unmark(ctx context.Context, name string, t principal.Type) (bool, error) {
	return s.setOwned(ctx, name, t, false)
}

func (s *Store) setOwned(ctx context.Context, name string, t principal.Type, owned bool) (bool, error) {
	row, updated, err := s.db.WriteRow(ctx, setOwnedQuery(t), map[string]any{
		"name":  name,
		"owned": owned,
	})
	if err != nil {
		return false, err
	}
	// The counter indicator covers drivers that report zero matched rows
	// for a write that sets a property to its current value.
	return row.Int("updated") > 0 || updated, nil
}
