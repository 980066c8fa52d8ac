package principal

import (
	"context"
	"sort"
	"strings"

	"github.com/marrowsec/bloodowned/internal/graph"
)

// Reader executes a read-only query against the identity graph.
type Reader interface {
	ReadRows(ctx context.Context, query string, params map[string]any) ([]graph.Row, error)
}

// Closed set of lookup templates keyed by principal type. The operator
// identifier is always bound as $q, never spliced into the query text.
// Each tier is capped at 10 rows so an overly generic substring cannot
// trigger an unbounded scan.
const (
	exactUserQuery = `MATCH (n:User)
WHERE toUpper(n.name) = toUpper($q) OR toUpper(n.azname) = toUpper($q)
RETURN n.name AS name LIMIT 10`

	exactComputerQuery = `MATCH (n:Computer)
WHERE toUpper(n.name) = toUpper($q) OR toUpper(n.azname) = toUpper($q)
RETURN n.name AS name LIMIT 10`

	fuzzyUserQuery = `MATCH (n:User)
WHERE toUpper(n.name) CONTAINS toUpper($q)
   OR toUpper(n.azname) CONTAINS toUpper($q)
   OR toUpper(n.objectid) CONTAINS toUpper($q)
RETURN n.name AS name LIMIT 10`

	fuzzyComputerQuery = `MATCH (n:Computer)
WHERE toUpper(n.name) CONTAINS toUpper($q)
   OR toUpper(n.azname) CONTAINS toUpper($q)
   OR toUpper(n.objectid) CONTAINS toUpper($q)
RETURN n.name AS name LIMIT 10`
)

func (t Type) exactQuery() string {
	if t == TypeComputer {
		return exactComputerQuery
	}
	return exactUserQuery
}

func (t Type) fuzzyQuery() string {
	if t == TypeComputer {
		return fuzzyComputerQuery
	}
	return fuzzyUserQuery
}

// Resolver turns an identifier into exactly one canonical principal.
type Resolver struct {
	db Reader
}

func NewResolver(db Reader) *Resolver {
	return &Resolver{db: db}
}

// Resolve parses raw (machine-account marker included) and resolves it.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Resolved, error) {
	key, t, _ := ParseIdentifier(raw)
	return r.ResolveAs(ctx, key, t)
}

// ResolveAs resolves key against nodes of type t. Candidates come from
// two tiers, exact match on name/azname first, then substring match on
// name/azname/objectid, merged in first-seen order and deduplicated by
// upper-cased canonical name. Zero candidates is a NotFoundError, more
// than one an AmbiguousError; resolution never guesses.
func (r *Resolver) ResolveAs(ctx context.Context, key string, t Type) (Resolved, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Resolved{}, &NotFoundError{Identifier: key}
	}

	params := map[string]any{"q": key}
	exact, err := r.db.ReadRows(ctx, t.exactQuery(), params)
	if err != nil {
		return Resolved{}, err
	}
	fuzzy, err := r.db.ReadRows(ctx, t.fuzzyQuery(), params)
	if err != nil {
		return Resolved{}, err
	}

	names := dedupNames(append(exact, fuzzy...))
	switch len(names) {
	case 0:
		return Resolved{}, &NotFoundError{Identifier: key}
	case 1:
		return Resolved{Name: names[0], Type: t}, nil
	default:
		sort.Strings(names)
		return Resolved{}, &AmbiguousError{Identifier: key, Matches: names}
	}
}

// dedupNames upper-cases the name field of each row and deduplicates
// while preserving first-seen order.
func dedupNames(rows []graph.Row) []string {
	seen := make(map[string]struct{}, len(rows))
	var names []string
	for _, row := range rows {
		name := strings.ToUpper(row.String("name"))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
