// Package principal resolves free-form operator identifiers to exactly
// one canonical principal in the identity graph.
package principal

import (
	"fmt"
	"strings"
)

// Type is the principal node type.
type Type int

const (
	TypeUser Type = iota
	TypeComputer
)

// Label returns the graph node label for the type.
func (t Type) Label() string {
	if t == TypeComputer {
		return "Computer"
	}
	return "User"
}

func (t Type) String() string {
	return t.Label()
}

// machineMarker is the conventional trailing marker on machine accounts
// (e.g. "SRV01$"). It is an input convention only and never part of the
// canonical name echoed back.
const machineMarker = "$"

// ParseIdentifier trims raw and detects the machine-account marker.
// A trailing marker forces TypeComputer and is stripped from the lookup
// key; otherwise the type defaults to TypeUser.
func ParseIdentifier(raw string) (key string, t Type, forced bool) {
	key = strings.TrimSpace(raw)
	if strings.HasSuffix(key, machineMarker) {
		return strings.TrimSuffix(key, machineMarker), TypeComputer, true
	}
	return key, TypeUser, false
}

// Resolved is the outcome of a successful resolution: exactly one
// canonical upper-cased name and its type.
type Resolved struct {
	Name string
	Type Type
}

// NotFoundError reports an identifier with zero resolution candidates.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("principal '%s' not found", e.Identifier)
}

// AmbiguousError reports an identifier with more than one candidate.
// Matches holds every deduplicated canonical name, sorted ascending.
type AmbiguousError struct {
	Identifier string
	Matches    []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple principals matched '%s': %s", e.Identifier, strings.Join(e.Matches, ", "))
}
