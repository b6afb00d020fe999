package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjaxgate/pjaxgate"
	"github.com/pjaxgate/pjaxgate/circuit"
	"github.com/pjaxgate/pjaxgate/proxy"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ParseArgs("pjaxgate", nil))

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, ":9911", cfg.SupportListener)
	assert.Equal(t, log.InfoLevel, cfg.ApplicationLogLevel)
	assert.Equal(t, proxy.DefaultTimeout, cfg.BackendTimeout)
	assert.False(t, cfg.PjaxAnnotations)
	assert.False(t, cfg.PjaxControllerInjection)
	assert.True(t, cfg.PjaxDefaultFilter)
	assert.Empty(t, cfg.PjaxDefaultVersion)
	assert.Equal(t, int64(defaultPjaxMaxBodySize), cfg.PjaxMaxBodySize)
	assert.Equal(t, map[string]string{
		"X-PJAX":           "_isPjax",
		"X-PJAX-Container": "_pjaxContainer",
	}, cfg.PjaxAttributeMap)
	assert.Equal(t, prometheus.DefBuckets, cfg.HistogramMetricBuckets)
}

func TestParseArgs(t *testing.T) {
	for _, tt := range []struct {
		name  string
		args  []string
		check func(*testing.T, *Config)
		fail  bool
	}{{
		name: "flags",
		args: []string{
			"-pjax-annotations",
			"-pjax-default-version=2",
			"-pjax-default-filter=false",
			"-pjax-controller-injection",
			"-pjax-attribute-map=x-pjax=isPjax",
		},
		check: func(t *testing.T, c *Config) {
			assert.True(t, c.PjaxAnnotations)
			assert.Equal(t, "2", c.PjaxDefaultVersion)
			assert.False(t, c.PjaxDefaultFilter)
			assert.True(t, c.PjaxControllerInjection)
			assert.Equal(t, map[string]string{"X-PJAX": "isPjax"}, c.PjaxAttributeMap)
		},
	}, {
		name: "config file",
		args: []string{"-config-file=testdata/test.yaml"},
		check: func(t *testing.T, c *Config) {
			assert.Equal(t, "localhost:8080", c.Address)
			assert.Equal(t, "routes.yaml", c.RoutesFile)
			assert.Equal(t, log.DebugLevel, c.ApplicationLogLevel)
			assert.Equal(t, 5*time.Second, c.BackendTimeout)
			assert.True(t, c.PjaxAnnotations)
			assert.Equal(t, "3", c.PjaxDefaultVersion)
			assert.True(t, c.PjaxDefaultFilter)
			assert.Equal(t, map[string]string{
				"X-PJAX":           "isPjax",
				"X-PJAX-Container": "pjaxContainer",
			}, c.PjaxAttributeMap)
		},
	}, {
		name: "flags override config file",
		args: []string{"-config-file=testdata/test.yaml", "-address=:7070", "-pjax-default-version=4"},
		check: func(t *testing.T, c *Config) {
			assert.Equal(t, ":7070", c.Address)
			assert.Equal(t, "4", c.PjaxDefaultVersion)
			assert.Equal(t, "routes.yaml", c.RoutesFile)
		},
	}, {
		name: "histogram buckets",
		args: []string{"-histogram-metric-buckets=0.5, 0.1,1"},
		check: func(t *testing.T, c *Config) {
			assert.Equal(t, []float64{0.1, 0.5, 1}, c.HistogramMetricBuckets)
		},
	}, {
		name: "circuit breakers",
		args: []string{"-breaker-failures=5", "-breaker-timeout=30s"},
		check: func(t *testing.T, c *Config) {
			assert.Equal(t, []circuit.BreakerSettings{{
				Type:             circuit.ConsecutiveFailures,
				Failures:         5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 1,
				IdleTTL:          circuit.DefaultIdleTTL,
			}}, c.ToOptions().BreakerSettings)
		},
	}, {
		name: "circuit breakers disabled by default",
		args: nil,
		check: func(t *testing.T, c *Config) {
			assert.Nil(t, c.ToOptions().BreakerSettings)
		},
	}, {
		name: "negative breaker failures",
		args: []string{"-breaker-failures=-1"},
		fail: true,
	}, {
		name: "invalid log level",
		args: []string{"-application-log-level=LOUD"},
		fail: true,
	}, {
		name: "invalid histogram buckets",
		args: []string{"-histogram-metric-buckets=fast"},
		fail: true,
	}, {
		name: "reserved attribute key",
		args: []string{"-pjax-attribute-map=X-PJAX=_pjax"},
		fail: true,
	}, {
		name: "unknown attribute header",
		args: []string{"-pjax-attribute-map=X-PJAX-Version=version"},
		fail: true,
	}, {
		name: "reserved attribute key in config file",
		args: []string{"-config-file=testdata/invalid-attribute-map.yaml"},
		fail: true,
	}, {
		name: "negative max body size",
		args: []string{"-pjax-max-body-size=-1"},
		fail: true,
	}, {
		name: "missing config file",
		args: []string{"-config-file=testdata/missing.yaml"},
		fail: true,
	}, {
		name: "positional arguments",
		args: []string{"foo"},
		fail: true,
	}} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.ParseArgs("pjaxgate", tt.args)
			if tt.fail {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestToOptions(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ParseArgs("pjaxgate", []string{
		"-config-file=testdata/test.yaml",
		"-access-log-disabled",
		"-metrics-prefix=test",
	}))

	want := pjaxgate.Options{
		Address:                 "localhost:8080",
		SupportListener:         ":9911",
		RoutesFile:              "routes.yaml",
		BackendTimeout:          5 * time.Second,
		ApplicationLogLevel:     log.DebugLevel,
		ApplicationLogPrefix:    "[APP]",
		AccessLogDisabled:       true,
		MetricsPrefix:           "test",
		EnableRuntimeMetrics:    true,
		HistogramMetricBuckets:  prometheus.DefBuckets,
		PjaxAnnotations:         true,
		PjaxDefaultVersion:      "3",
		PjaxDefaultFilter:       true,
		PjaxMaxBodySize:         defaultPjaxMaxBodySize,
		PjaxControllerInjection: true,
		PjaxAttributeMap: map[string]string{
			"X-PJAX":           "isPjax",
			"X-PJAX-Container": "pjaxContainer",
		},
	}

	got := cfg.ToOptions()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(pjaxgate.Options{})); diff != "" {
		t.Errorf("ToOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestToOptionsLogFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	require.NoError(t, cfg.ParseArgs("pjaxgate", []string{
		"-application-log=" + filepath.Join(dir, "app.log"),
		"-access-log=" + filepath.Join(dir, "access.log"),
	}))

	o := cfg.ToOptions()
	require.NotNil(t, o.ApplicationLogOutput)
	require.NotNil(t, o.AccessLogOutput)

	_, err := os.Stat(filepath.Join(dir, "app.log"))
	assert.NoError(t, err)
	o.ApplicationLogOutput.(*os.File).Close()
	o.AccessLogOutput.(*os.File).Close()
}
