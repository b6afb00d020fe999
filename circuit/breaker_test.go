package circuit

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errBackend = errors.New("connection refused")
	ok200      = &http.Response{StatusCode: http.StatusOK}
)

func fail(t *testing.T, b *Breaker, times int) {
	for i := 0; i < times; i++ {
		done, ok := b.Allow()
		require.True(t, ok)
		done(nil, errBackend)
	}
}

func TestConsecutiveBreaker(t *testing.T) {
	s := BreakerSettings{
		Type:             ConsecutiveFailures,
		Host:             "backend.example.org",
		Failures:         3,
		Timeout:          15 * time.Millisecond,
		HalfOpenRequests: 1,
		IdleTTL:          time.Hour,
	}

	t.Run("stays closed below the failures", func(t *testing.T) {
		b := newBreaker(s)
		fail(t, b, 2)

		done, ok := b.Allow()
		require.True(t, ok)
		done(ok200, nil)

		fail(t, b, 2)
		_, ok = b.Allow()
		assert.True(t, ok)
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		b := newBreaker(s)
		fail(t, b, 3)

		done, ok := b.Allow()
		assert.False(t, ok)
		assert.Nil(t, done)
	})

	t.Run("closes after the timeout and a success", func(t *testing.T) {
		b := newBreaker(s)
		fail(t, b, 3)

		require.Eventually(t, func() bool {
			done, ok := b.Allow()
			if ok {
				done(ok200, nil)
			}

			return ok
		}, time.Second, 5*time.Millisecond)

		done, ok := b.Allow()
		require.True(t, ok)
		done(ok200, nil)
	})

	t.Run("reopens on half-open failure", func(t *testing.T) {
		b := newBreaker(s)
		fail(t, b, 3)

		time.Sleep(2 * s.Timeout)
		done, ok := b.Allow()
		require.True(t, ok)
		done(nil, errBackend)

		_, ok = b.Allow()
		assert.False(t, ok)
	})
}

func TestFailed(t *testing.T) {
	for _, tt := range []struct {
		name   string
		rsp    *http.Response
		err    error
		failed bool
	}{
		{"success", ok200, nil, false},
		{"client error", &http.Response{StatusCode: http.StatusNotFound}, nil, false},
		{"server error", &http.Response{StatusCode: http.StatusInternalServerError}, nil, true},
		{"unavailable", &http.Response{StatusCode: http.StatusServiceUnavailable}, nil, true},
		{"request error", nil, errBackend, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.failed, Failed(tt.rsp, tt.err))
		})
	}
}

func TestBreakerCountsServerErrors(t *testing.T) {
	b := newBreaker(BreakerSettings{
		Type:     ConsecutiveFailures,
		Host:     "backend.example.org",
		Failures: 2,
		Timeout:  time.Minute,
	})

	for i := 0; i < 5; i++ {
		done, ok := b.Allow()
		require.True(t, ok)
		done(&http.Response{StatusCode: http.StatusNotFound}, nil)
	}

	for i := 0; i < 2; i++ {
		done, ok := b.Allow()
		require.True(t, ok)
		done(&http.Response{StatusCode: http.StatusBadGateway}, nil)
	}

	_, ok := b.Allow()
	assert.False(t, ok)
}

func TestVoidBreaker(t *testing.T) {
	b := newBreaker(BreakerSettings{Type: BreakerDisabled})
	for i := 0; i < 10; i++ {
		done, ok := b.Allow()
		require.True(t, ok)
		done(nil, errBackend)
	}
}

func TestSettingsString(t *testing.T) {
	s := BreakerSettings{
		Type:             ConsecutiveFailures,
		Host:             "foo",
		Failures:         5,
		Timeout:          time.Minute,
		HalfOpenRequests: 2,
		IdleTTL:          time.Hour,
	}

	assert.Equal(t, "type=consecutive,host=foo,failures=5,timeout=1m0s,half-open-requests=2,idle-ttl=1h0m0s", s.String())
	assert.Equal(t, "type=disabled", BreakerSettings{Type: BreakerDisabled}.String())
}
