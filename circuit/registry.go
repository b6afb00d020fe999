package circuit

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultIdleTTL = time.Hour

// Options of the registry.
type Options struct {
	// Defaults are applied to every backend host.
	Defaults BreakerSettings

	// HostSettings override the defaults for individual hosts.
	HostSettings []BreakerSettings
}

// Registry objects hold the active circuit breakers, ensure synchronized
// access to them, apply default settings and recycle the idle breakers.
type Registry struct {
	defaults     BreakerSettings
	hostSettings map[string]BreakerSettings
	lookup       map[BreakerSettings]*Breaker
	mx           *sync.Mutex
}

// NewRegistry initializes a registry with the provided settings. Settings
// with the same Host field are merged together.
func NewRegistry(o Options) *Registry {
	defaults := o.Defaults
	defaults.Host = ""
	if defaults.IdleTTL <= 0 {
		defaults.IdleTTL = DefaultIdleTTL
	}

	hs := make(map[string]BreakerSettings)
	for _, s := range o.HostSettings {
		if sh, ok := hs[s.Host]; ok {
			hs[s.Host] = s.mergeSettings(sh)
		} else {
			hs[s.Host] = s.mergeSettings(defaults)
		}
	}

	log.Debugf("circuit breaker defaults: %v", defaults)
	return &Registry{
		defaults:     defaults,
		hostSettings: hs,
		lookup:       make(map[BreakerSettings]*Breaker),
		mx:           &sync.Mutex{},
	}
}

func (r *Registry) mergeDefaults(s BreakerSettings) BreakerSettings {
	defaults, ok := r.hostSettings[s.Host]
	if !ok {
		defaults = r.defaults
	}

	return s.mergeSettings(defaults)
}

func (r *Registry) dropIdle(now time.Time) {
	for h, b := range r.lookup {
		if b.idle(now) {
			delete(r.lookup, h)
		}
	}
}

func (r *Registry) get(s BreakerSettings) *Breaker {
	r.mx.Lock()
	defer r.mx.Unlock()

	now := time.Now()

	b, ok := r.lookup[s]
	if !ok || b.idle(now) {
		r.dropIdle(now)
		b = newBreaker(s)
		r.lookup[s] = b
	}

	b.ts = now
	return b
}

// Get returns a circuit breaker for the provided settings. Typically it
// is enough to set only the Host field:
//
//	r.Get(BreakerSettings{Host: backendHost})
//
// The key is filled up with the defaults, and the matching circuit breaker
// is returned if it exists, or a new one is created if not. It returns nil
// when no breaker is configured for the host.
func (r *Registry) Get(s BreakerSettings) *Breaker {
	if s.Type == BreakerDisabled || s.Host == "" {
		return nil
	}

	s = r.mergeDefaults(s)
	if s.Type != ConsecutiveFailures {
		return nil
	}

	return r.get(s)
}
