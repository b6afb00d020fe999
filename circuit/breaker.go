package circuit

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerType defines the type of the used breaker: consecutive or
// disabled.
type BreakerType int

const (
	BreakerNone BreakerType = iota
	ConsecutiveFailures
	BreakerDisabled
)

func (t BreakerType) String() string {
	switch t {
	case ConsecutiveFailures:
		return "consecutive"
	case BreakerDisabled:
		return "disabled"
	default:
		return "none"
	}
}

// BreakerSettings contains the settings for individual circuit breakers.
type BreakerSettings struct {
	Type             BreakerType
	Host             string
	Failures         int
	Timeout          time.Duration
	HalfOpenRequests int
	IdleTTL          time.Duration
}

// Done reports the outcome of a backend request to the breaker that
// allowed it.
type Done func(rsp *http.Response, err error)

type breakerImplementation interface {
	Allow() (func(bool), bool)
}

type voidBreaker struct{}

func (voidBreaker) Allow() (func(bool), bool) {
	return func(bool) {}, true
}

// backendBreaker opens after the configured number of consecutive
// failures of a backend host.
type backendBreaker struct {
	gb *gobreaker.TwoStepCircuitBreaker
}

func newBackendBreaker(s BreakerSettings) backendBreaker {
	failures := uint32(s.Failures)
	return backendBreaker{gb: gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        s.Host,
		MaxRequests: uint32(s.HalfOpenRequests),
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(backend string, from, to gobreaker.State) {
			log.Infof("circuit breaker of backend %s: %v -> %v", backend, from, to)
		},
	})}
}

// the error of Allow can only mean that the breaker is open, or that the
// half-open requests are used up
func (b backendBreaker) Allow() (func(bool), bool) {
	done, err := b.gb.Allow()
	if err != nil {
		return nil, false
	}

	return done, true
}

// Failed tells whether a backend request counts as a failure: the
// request failed, or the backend responded with a 5xx status.
func Failed(rsp *http.Response, err error) bool {
	return err != nil || rsp == nil || rsp.StatusCode >= http.StatusInternalServerError
}

// Breaker represents a single circuit breaker for a particular set of
// settings.
//
// Use the Get() method of the Registry to request fully initialized
// breakers.
type Breaker struct {
	settings BreakerSettings
	ts       time.Time
	impl     breakerImplementation
}

func (to BreakerSettings) mergeSettings(from BreakerSettings) BreakerSettings {
	if to.Type == BreakerNone {
		to.Type = from.Type
		if from.Type == ConsecutiveFailures && to.Failures == 0 {
			to.Failures = from.Failures
		}
	}

	if to.Timeout == 0 {
		to.Timeout = from.Timeout
	}

	if to.HalfOpenRequests == 0 {
		to.HalfOpenRequests = from.HalfOpenRequests
	}

	if to.IdleTTL == 0 {
		to.IdleTTL = from.IdleTTL
	}

	return to
}

// String returns the string representation of a particular set of
// settings.
//
//lint:ignore ST1016 "s" makes sense here and mergeSettings has "to"
func (s BreakerSettings) String() string {
	ss := []string{"type=" + s.Type.String()}

	if s.Host != "" {
		ss = append(ss, "host="+s.Host)
	}

	if s.Type == ConsecutiveFailures {
		ss = append(ss, fmt.Sprintf("failures=%d", s.Failures))
	}

	if s.Timeout > 0 {
		ss = append(ss, "timeout="+s.Timeout.String())
	}

	if s.HalfOpenRequests > 0 {
		ss = append(ss, fmt.Sprintf("half-open-requests=%d", s.HalfOpenRequests))
	}

	if s.IdleTTL > 0 {
		ss = append(ss, "idle-ttl="+s.IdleTTL.String())
	}

	return strings.Join(ss, ",")
}

func newBreaker(s BreakerSettings) *Breaker {
	var impl breakerImplementation
	switch s.Type {
	case ConsecutiveFailures:
		impl = newBackendBreaker(s)
	default:
		impl = voidBreaker{}
	}

	return &Breaker{
		settings: s,
		impl:     impl,
	}
}

// Allow returns true when the backend may be called, and the callback
// for reporting the outcome of the request. When the breaker is open, it
// returns false and no callback.
func (b *Breaker) Allow() (Done, bool) {
	done, ok := b.impl.Allow()
	if !ok {
		return nil, false
	}

	return func(rsp *http.Response, err error) {
		done(!Failed(rsp, err))
	}, true
}

// Settings returns the merged settings of the breaker.
func (b *Breaker) Settings() BreakerSettings {
	return b.settings
}

func (b *Breaker) idle(now time.Time) bool {
	return now.Sub(b.ts) > b.settings.IdleTTL
}
