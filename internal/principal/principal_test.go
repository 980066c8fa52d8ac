package principal

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/marrowsec/bloodowned/internal/graph"
)

// stubReader serves canned rows: exact-tier queries get exact, fuzzy
// (CONTAINS) queries get fuzzy. It records every query and param set.
type stubReader struct {
	exact   []graph.Row
	fuzzy   []graph.Row
	queries []string
	params  []map[string]any
}

func (s *stubReader) ReadRows(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	s.queries = append(s.queries, query)
	s.params = append(s.params, params)
	if strings.Contains(query, "CONTAINS") {
		return s.fuzzy, nil
	}
	return s.exact, nil
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		raw    string
		key    string
		typ    Type
		forced bool
	}{
		{"alice@corp.local", "alice@corp.local", TypeUser, false},
		{"  bob.smith  ", "bob.smith", TypeUser, false},
		{"SRV01$", "SRV01", TypeComputer, true},
		{" SRV01$ ", "SRV01", TypeComputer, true},
		{"$", "", TypeComputer, true},
		{"", "", TypeUser, false},
	}
	for _, tt := range tests {
		key, typ, forced := ParseIdentifier(tt.raw)
		if key != tt.key || typ != tt.typ || forced != tt.forced {
			t.Errorf("ParseIdentifier(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.raw, key, typ, forced, tt.key, tt.typ, tt.forced)
		}
	}
}

func TestResolve_SingleMatch(t *testing.T) {
	db := &stubReader{exact: []graph.Row{{"name": "alice@corp.local"}}}
	r := NewResolver(db)

	resolved, err := r.Resolve(context.Background(), "alice@corp.local")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Name != "ALICE@CORP.LOCAL" {
		t.Errorf("expected upper-cased canonical name, got %q", resolved.Name)
	}
	if resolved.Type != TypeUser {
		t.Errorf("expected TypeUser, got %v", resolved.Type)
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	db := &stubReader{exact: []graph.Row{{"name": "Alice@corp.local"}}}
	r := NewResolver(db)

	lower, err := r.Resolve(context.Background(), "alice@corp.local")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := r.Resolve(context.Background(), "ALICE@CORP.LOCAL")
	if err != nil {
		t.Fatal(err)
	}
	if lower != upper {
		t.Errorf("case variants resolved differently: %+v vs %+v", lower, upper)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := NewResolver(&stubReader{})

	_, err := r.Resolve(context.Background(), "NOSUCHUSER")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Identifier != "NOSUCHUSER" {
		t.Errorf("expected identifier NOSUCHUSER, got %q", notFound.Identifier)
	}
}

func TestResolve_EmptyIdentifier(t *testing.T) {
	db := &stubReader{}
	r := NewResolver(db)

	_, err := r.Resolve(context.Background(), "   ")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(db.queries) != 0 {
		t.Errorf("empty identifier should not hit the store, ran %d queries", len(db.queries))
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	// Neither candidate matches exactly; the fuzzy tier returns both in
	// reverse order to prove the error list comes back sorted.
	db := &stubReader{fuzzy: []graph.Row{{"name": "ALICE2"}, {"name": "ALICE"}}}
	r := NewResolver(db)

	_, err := r.Resolve(context.Background(), "ALI")
	var ambiguous *AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if ambiguous.Identifier != "ALI" {
		t.Errorf("expected identifier ALI, got %q", ambiguous.Identifier)
	}
	want := []string{"ALICE", "ALICE2"}
	if !reflect.DeepEqual(ambiguous.Matches, want) {
		t.Errorf("expected sorted matches %v, got %v", want, ambiguous.Matches)
	}
}

func TestResolve_DedupAcrossTiers(t *testing.T) {
	// The same node surfacing in both tiers with different casing must
	// collapse into a single candidate.
	db := &stubReader{
		exact: []graph.Row{{"name": "ALICE@CORP.LOCAL"}},
		fuzzy: []graph.Row{{"name": "alice@corp.local"}},
	}
	r := NewResolver(db)

	resolved, err := r.Resolve(context.Background(), "alice@corp.local")
	if err != nil {
		t.Fatalf("expected single match after dedup, got %v", err)
	}
	if resolved.Name != "ALICE@CORP.LOCAL" {
		t.Errorf("unexpected canonical name %q", resolved.Name)
	}
}

func TestResolve_MachineAccountRouting(t *testing.T) {
	db := &stubReader{exact: []graph.Row{{"name": "SRV01.CORP.LOCAL"}}}
	r := NewResolver(db)

	resolved, err := r.Resolve(context.Background(), "SRV01$")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Type != TypeComputer {
		t.Errorf("expected TypeComputer, got %v", resolved.Type)
	}
	for _, q := range db.queries {
		if !strings.Contains(q, "(n:Computer)") {
			t.Errorf("expected Computer-label query, got %q", q)
		}
	}
	for _, params := range db.params {
		if params["q"] != "SRV01" {
			t.Errorf("expected marker-stripped lookup key SRV01, got %v", params["q"])
		}
	}
}

func TestTypeLabel(t *testing.T) {
	if TypeUser.Label() != "User" || TypeComputer.Label() != "Computer" {
		t.Errorf("unexpected labels: %q, %q", TypeUser.Label(), TypeComputer.Label())
	}
}
