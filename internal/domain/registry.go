// internal/domain/registry.go
package domain

import (
	"fmt"
	"strings"
	"sync"
)

const (
	GenericName = "generic"
	AutoName    = "auto"
)

// Registry maps profile names to strategies. It is filled at startup and
// sealed; lookups after Seal need no locking.
type Registry struct {
	profiles map[string]Profile
	order    []string
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

func (r *Registry) Register(name string, p Profile) error {
	if r.sealed {
		return fmt.Errorf("profile registry is sealed")
	}
	if name == "" || p == nil {
		return fmt.Errorf("profile name and implementation are required")
	}
	if _, exists := r.profiles[name]; exists {
		return fmt.Errorf("profile %q already registered", name)
	}
	r.profiles[name] = p
	r.order = append(r.order, name)
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() { r.sealed = true }

func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// AutoDetect returns the highest-scoring profile. Ties keep registration order;
// when nothing scores, the generic profile wins.
func (r *Registry) AutoDetect(text string) (Profile, Detection) {
	var (
		best    Profile
		bestDet Detection
	)
	for _, name := range r.order {
		p := r.profiles[name]
		det := p.Detect(text)
		det.Profile = name
		if best == nil || det.Score > bestDet.Score {
			best, bestDet = p, det
		}
	}
	if bestDet.Score <= 0 {
		if generic, ok := r.profiles[GenericName]; ok {
			return generic, Detection{Profile: GenericName, Evidence: []string{}}
		}
	}
	if bestDet.Evidence == nil {
		bestDet.Evidence = []string{}
	}
	return best, bestDet
}

// Resolve selects the profile named by prefs.domain, falling back to
// auto-detection for empty, generic, auto or unregistered names. The
// detection is nil when the explicit name was used.
func (r *Registry) Resolve(domainName, text string) (Profile, *Detection) {
	name := strings.ToLower(strings.TrimSpace(domainName))
	if name != "" && name != GenericName && name != AutoName {
		if p, ok := r.profiles[name]; ok {
			return p, nil
		}
	}
	p, det := r.AutoDetect(text)
	return p, &det
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the sealed process-wide registry holding every built-in profile.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, p := range []Profile{
			newPhoneProfile(),
			newLaptopProfile(),
			newFashionProfile(),
			newBooksProfile(),
			newCosmeticsProfile(),
			newGenericProfile(),
		} {
			if err := r.Register(p.Name(), p); err != nil {
				panic(err)
			}
		}
		r.Seal()
		defaultRegistry = r
	})
	return defaultRegistry
}
