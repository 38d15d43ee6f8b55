package assistant

import (
	"fmt"
	"sync/atomic"
)

// Snapshot is one immutable generation of loaded profiles. Order is the load
// order and is significant: classifier ties break by it.
type Snapshot struct {
	profiles []Profile
	byName   map[string]*Profile
}

func newSnapshot(profiles []Profile) (*Snapshot, error) {
	s := &Snapshot{
		profiles: profiles,
		byName:   make(map[string]*Profile, len(profiles)),
	}
	for i := range s.profiles {
		p := &s.profiles[i]
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		key := Normalize(p.Name)
		if _, dup := s.byName[key]; dup {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		s.byName[key] = p
	}
	if _, ok := s.byName[FallbackName]; !ok {
		return nil, fmt.Errorf("registry must contain the %q fallback profile", FallbackName)
	}
	return s, nil
}

// List returns all profiles in registry order.
func (s *Snapshot) List() []*Profile {
	out := make([]*Profile, len(s.profiles))
	for i := range s.profiles {
		out[i] = &s.profiles[i]
	}
	return out
}

// Names returns all profile names in registry order.
func (s *Snapshot) Names() []string {
	names := make([]string, len(s.profiles))
	for i := range s.profiles {
		names[i] = s.profiles[i].Name
	}
	return names
}

// Get looks up a profile by name, tolerating case, space, underscore, and
// hyphen differences. Returns NotFoundError with the valid names on miss.
func (s *Snapshot) Get(name string) (*Profile, error) {
	if p, ok := s.byName[Normalize(name)]; ok {
		return p, nil
	}
	// Display names are also accepted.
	for i := range s.profiles {
		if Normalize(s.profiles[i].DisplayName) == Normalize(name) {
			return &s.profiles[i], nil
		}
	}
	valid := s.Names()
	return nil, &NotFoundError{
		Name:       name,
		Valid:      valid,
		Suggestion: suggest(name, valid),
	}
}

// Fallback returns the generic profile. The snapshot constructor guarantees
// its presence.
func (s *Snapshot) Fallback() *Profile {
	return s.byName[FallbackName]
}

// Len returns the number of profiles.
func (s *Snapshot) Len() int {
	return len(s.profiles)
}

// Registry hands out profile snapshots. Reload swaps in a new generation
// without mutating the old one; requests started before the swap keep the
// snapshot reference they took at ingress.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry builds a registry from an initial profile set.
func NewRegistry(profiles []Profile) (*Registry, error) {
	snap, err := newSnapshot(profiles)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.current.Store(snap)
	return r, nil
}

// Snapshot returns the current generation. Safe for concurrent use.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Reload validates and swaps in a new profile set. On validation failure the
// previous snapshot stays in place.
func (r *Registry) Reload(profiles []Profile) error {
	snap, err := newSnapshot(profiles)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}
