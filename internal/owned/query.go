package owned

import (
	"context"
	"sort"
	"strings"

	"github.com/marrowsec/bloodowned/internal/graph"
	"github.com/marrowsec/bloodowned/internal/principal"
)

// Reader executes a read-only query against the identity graph.
type Reader interface {
	ReadRows(ctx context.Context, query string, params map[string]any) ([]graph.Row, error)
}

// Principal is one owned principal with its listing metadata.
type Principal struct {
	Name         string
	Type         principal.Type
	HighValue    bool
	ControlCount int64
}

const listQuery = `MATCH (n)
WHERE (n:User OR n:Computer) AND n.owned = true
OPTIONAL MATCH (n)-[r]->()
WHERE r.isacl = true
WITH n, count(r) AS controls
RETURN n.name AS name, n.highvalue AS highvalue, n:Computer AS isComputer, controls`

// The search tiers mirror the resolver's exact-then-fuzzy strategy but
// span both types via the Base supertype and only consider owned nodes.
const (
	searchExactQuery = `MATCH (n:Base)
WHERE n.owned = true
  AND (toUpper(n.name) = toUpper($q) OR toUpper(n.azname) = toUpper($q))
RETURN n.name AS name LIMIT 10`

	searchFuzzyQuery = `MATCH (n:Base)
WHERE n.owned = true
  AND (toUpper(n.name) CONTAINS toUpper($q)
   OR toUpper(n.azname) CONTAINS toUpper($q)
   OR toUpper(n.objectid) CONTAINS toUpper($q))
RETURN n.name AS name LIMIT 10`
)

// Query reads owned principals. All operations are read-only and never
// touch the resolver or batch path.
type Query struct {
	db Reader
}

func NewQuery(db Reader) *Query {
	return &Query{db: db}
}

// List returns every owned principal of either type, sorted ascending
// by name. ControlCount counts outgoing control edges; a principal with
// none reports 0.
func (q *Query) List(ctx context.Context) ([]Principal, error) {
	rows, err := q.db.ReadRows(ctx, listQuery, nil)
	if err != nil {
		return nil, err
	}
	principals := make([]Principal, 0, len(rows))
	for _, row := range rows {
		p := Principal{
			Name:         strings.ToUpper(row.String("name")),
			Type:         principal.TypeUser,
			HighValue:    row.Bool("highvalue"),
			ControlCount: row.Int("controls"),
		}
		if row.Bool("isComputer") {
			p.Type = principal.TypeComputer
		}
		principals = append(principals, p)
	}
	sort.Slice(principals, func(i, j int) bool { return principals[i].Name < principals[j].Name })
	return principals, nil
}

// Search returns the canonical names of owned principals matching
// pattern, exact tier first then fuzzy tier, deduplicated in first-seen
// order. Multiple matches are a normal result here, never an error.
func (q *Query) Search(ctx context.Context, pattern string) ([]string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}

	params := map[string]any{"q": pattern}
	exact, err := q.db.ReadRows(ctx, searchExactQuery, params)
	if err != nil {
		return nil, err
	}
	fuzzy, err := q.db.ReadRows(ctx, searchFuzzyQuery, params)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, row := range append(exact, fuzzy...) {
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
	return names, nil
}
