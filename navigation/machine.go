package navigation

import (
	"strings"
	"sync"
)

/*
Machine is the navigation state machine.

Any view can jump to any other (the dashboard offers shortcuts into both
detail screens), and Back undoes exactly one step. Every method is atomic with
respect to the others: a reader never sees the changelog view without a
selected version.
*/
type Machine struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewMachine returns a machine on the dashboard with an empty selection.
func NewMachine() *Machine {
	return &Machine{
		state:     initialState(),
		listeners: make(map[int]func(State)),
	}
}

/*
ToDashboard shows the dashboard and clears both selections. It resets the
history rather than pushing onto it.

The dashboard is the root: the history collapses to [dashboard], so repeated
calls never grow it and Back can never land on a detail screen whose
selection was just cleared.
*/
func (m *Machine) ToDashboard() {
	m.update(func(s *State) {
		s.CurrentView = Dashboard
		s.SelectedPackage = nil
		s.SelectedVersion = nil
		s.History = []View{Dashboard}
	})
}

// ToTimeline shows the version timeline of pkg. The selected version is kept
// as it was. A nil or unnamed pkg returns ErrMissingPackage and changes nothing.
func (m *Machine) ToTimeline(pkg *PackageRef) error {
	if !validPackage(pkg) {
		return ErrMissingPackage
	}
	p := *pkg
	m.update(func(s *State) {
		s.CurrentView = Timeline
		s.SelectedPackage = &p
		s.push(Timeline)
	})
	return nil
}

// ToChangelog shows the release notes of version of pkg. Missing references
// return ErrMissingPackage or ErrMissingVersion and change nothing.
func (m *Machine) ToChangelog(pkg *PackageRef, version *VersionRef) error {
	if !validPackage(pkg) {
		return ErrMissingPackage
	}
	if version == nil || strings.TrimSpace(version.Version) == "" {
		return ErrMissingVersion
	}
	p, v := *pkg, *version
	m.update(func(s *State) {
		s.CurrentView = Changelog
		s.SelectedPackage = &p
		s.SelectedVersion = &v
		s.push(Changelog)
	})
	return nil
}

/*
Back returns to the previous view.

At the root it floors: the history stays [dashboard] and the selections are
cleared. Otherwise exactly one entry is popped and the selections are left as
they were, so returning from a changelog to the timeline still shows the same
package (and remembers the version). Landing on the dashboard clears them, as
the dashboard carries no selection.
*/
func (m *Machine) Back() {
	m.update(func(s *State) {
		if len(s.History) <= 1 {
			s.History = []View{Dashboard}
			s.CurrentView = Dashboard
			s.SelectedPackage = nil
			s.SelectedVersion = nil
			return
		}
		s.History = s.History[:len(s.History)-1]
		s.CurrentView = s.History[len(s.History)-1]
		if s.CurrentView == Dashboard {
			s.SelectedPackage = nil
			s.SelectedVersion = nil
		}
	})
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.update(func(s *State) { *s = initialState() })
}

// State returns a deep copy of the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

func (m *Machine) CurrentView() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CurrentView
}

func (m *Machine) SelectedPackage() *PackageRef {
	return m.State().SelectedPackage
}

func (m *Machine) SelectedVersion() *VersionRef {
	return m.State().SelectedVersion
}

func (m *Machine) History() []View {
	return m.State().History
}

/*
Subscribe registers fn to receive a snapshot after every transition.
Listeners run synchronously, after the lock is released, in no particular
order. The returned func unregisters fn.
*/
func (m *Machine) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Machine) update(apply func(*State)) {
	m.mu.Lock()
	apply(&m.state)
	snapshot := m.state.Clone()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}

// MaxHistory bounds the view history. Past it the oldest entry after the
// dashboard root is dropped.
const MaxHistory = 32

// push appends v unless it is already the top of the history.
func (s *State) push(v View) {
	if len(s.History) > 0 && s.History[len(s.History)-1] == v {
		return
	}
	s.History = append(s.History, v)
	if len(s.History) > MaxHistory {
		// Dashboard only ever sits at index 0, so dropping index 1 cannot
		// create adjacent duplicates.
		s.History = append(s.History[:1], s.History[2:]...)
	}
}

func validPackage(p *PackageRef) bool {
	return p != nil && strings.TrimSpace(p.NpmName) != ""
}
