// Package navigation tracks which dashboard screen is active, which package
// and version are selected, and the view history used by Back.
package navigation

import (
	"errors"
	"time"
)

// View is one dashboard screen.
type View string

const (
	Dashboard View = "dashboard"
	Timeline  View = "timeline"
	Changelog View = "changelog"
)

func (v View) String() string { return string(v) }

// Preconditions of the forward transitions. A transition that fails with one
// of these leaves the state untouched.
var (
	ErrMissingPackage = errors.New("navigation: package reference is required")
	ErrMissingVersion = errors.New("navigation: version reference is required")
)

// PackageRef identifies the package being viewed.
type PackageRef struct {
	NpmName     string `json:"npmName"`
	Repository  string `json:"repository,omitempty"` // owner/name on GitHub
	DisplayName string `json:"displayName,omitempty"`
}

// VersionRef identifies one published version.
type VersionRef struct {
	Version     string    `json:"version"`
	Tag         string    `json:"tag,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

/*
State is a snapshot of the navigation machine.

Invariants, held by every reachable state:
  - History is non-empty and History[0] is Dashboard
  - no two adjacent History entries are equal
  - CurrentView == Timeline  implies SelectedPackage != nil
  - CurrentView == Changelog implies SelectedPackage != nil && SelectedVersion != nil
*/
type State struct {
	CurrentView     View        `json:"currentView"`
	SelectedPackage *PackageRef `json:"selectedPackage"`
	SelectedVersion *VersionRef `json:"selectedVersion"`
	History         []View      `json:"viewHistory"`
}

// Clone returns a deep copy, so callers can hold a snapshot while the machine
// keeps moving.
func (s State) Clone() State {
	out := State{
		CurrentView: s.CurrentView,
		History:     append([]View(nil), s.History...),
	}
	if s.SelectedPackage != nil {
		p := *s.SelectedPackage
		out.SelectedPackage = &p
	}
	if s.SelectedVersion != nil {
		v := *s.SelectedVersion
		out.SelectedVersion = &v
	}
	return out
}

// Validate reports the first violated invariant, or nil.
func (s State) Validate() error {
	if len(s.History) == 0 || s.History[0] != Dashboard {
		return errors.New("navigation: history must start at dashboard")
	}
	for i := 1; i < len(s.History); i++ {
		if s.History[i] == s.History[i-1] {
			return errors.New("navigation: history has adjacent duplicates")
		}
	}
	if s.History[len(s.History)-1] != s.CurrentView {
		return errors.New("navigation: current view is not the top of history")
	}
	switch s.CurrentView {
	case Timeline:
		if s.SelectedPackage == nil {
			return ErrMissingPackage
		}
	case Changelog:
		if s.SelectedPackage == nil {
			return ErrMissingPackage
		}
		if s.SelectedVersion == nil {
			return ErrMissingVersion
		}
	}
	return nil
}

func initialState() State {
	return State{CurrentView: Dashboard, History: []View{Dashboard}}
}
