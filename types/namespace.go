package types

import (
	"fmt"
	"strings"
	"time"
)

// Namespace is a logical partition of the cache keyed by data category.
type Namespace string

const (
	// Dashboard holds package summaries.
	Dashboard Namespace = "dashboard"

	// Timeline holds version timelines.
	Timeline Namespace = "timeline"

	// Changelog holds release notes for one published version.
	Changelog Namespace = "changelog"
)

// Namespaces lists every namespace in a stable order.
func Namespaces() []Namespace {
	return []Namespace{Dashboard, Timeline, Changelog}
}

// Valid reports whether n is one of the known namespaces.
func (n Namespace) Valid() bool {
	switch n {
	case Dashboard, Timeline, Changelog:
		return true
	}
	return false
}

func (n Namespace) String() string { return string(n) }

// DefaultTTL is how long entries of this namespace live when the caller does
// not pass a TTL. Published changelogs never change, so they live longest.
func (n Namespace) DefaultTTL() time.Duration {
	switch n {
	case Dashboard:
		return 5 * time.Minute
	case Timeline:
		return 10 * time.Minute
	case Changelog:
		return 15 * time.Minute
	}
	return 5 * time.Minute
}

// ParseNamespace converts a user supplied name into a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	n := Namespace(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown cache namespace %q", s)
	}
	return n, nil
}
