package pjaxgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pjaxgate/pjaxgate/annotation"
	"github.com/pjaxgate/pjaxgate/circuit"
	"github.com/pjaxgate/pjaxgate/filters"
	"github.com/pjaxgate/pjaxgate/filters/builtin"
	"github.com/pjaxgate/pjaxgate/filters/pjax"
	"github.com/pjaxgate/pjaxgate/logging"
	"github.com/pjaxgate/pjaxgate/metrics"
	"github.com/pjaxgate/pjaxgate/proxy"
	"github.com/pjaxgate/pjaxgate/routing"
)

const defaultShutdownTimeout = 10 * time.Second

// Options to start pjaxgate.
type Options struct {
	// Network address that pjaxgate should listen on.
	Address string

	// Network address used for exposing the /metrics endpoint. An empty
	// value disables the support listener.
	SupportListener string

	// File containing the controller annotations and the routes.
	RoutesFile string

	// Routes added to the ones loaded from the RoutesFile.
	Routes []*routing.RouteDef

	// Annotations are used instead of the controllers of the RoutesFile,
	// when set.
	Annotations annotation.Reader

	// In-process backends, referenced by the <local:name> backends.
	Handlers map[string]http.Handler

	// Custom filters, registered in addition to the pjax filters.
	CustomFilters []filters.Spec

	// Timeout of the requests to the network backends.
	BackendTimeout time.Duration

	// Circuit breakers of the network backends. Settings with an empty
	// Host are the defaults of every host. When empty, no circuit
	// breakers are used.
	BreakerSettings []circuit.BreakerSettings

	// Level of the application log.
	ApplicationLogLevel log.Level

	// Prefix for application log entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil, os.Stderr is
	// used.
	ApplicationLogOutput io.Writer

	// When set, the application log entries are printed as JSON.
	ApplicationLogJSONEnabled bool

	// Output for the access log entries, when nil, os.Stderr is used.
	AccessLogOutput io.Writer

	// When set, no access log is printed.
	AccessLogDisabled bool

	// When set, the access log entries are printed as JSON.
	AccessLogJSONEnabled bool

	// Namespace of the prometheus metrics.
	MetricsPrefix string

	// Collect the Go runtime and process metrics.
	EnableRuntimeMetrics bool

	// Buckets of the duration histograms.
	HistogramMetricBuckets []float64

	// Enables the pjax filter on every route.
	PjaxAnnotations bool

	// Default version, used when the annotations don't set one.
	PjaxDefaultVersion string

	// Default filter flag, used when the annotations don't set one.
	PjaxDefaultFilter bool

	// Responses larger than this are not filtered. Zero means no limit.
	PjaxMaxBodySize int64

	// Enables the pjaxAttributes filter on every route.
	PjaxControllerInjection bool

	// State bag keys of the PJAX request headers. When nil, the default
	// keys are used.
	PjaxAttributeMap map[string]string
}

func (o Options) pjaxDefaults() map[string]interface{} {
	d := map[string]interface{}{annotation.FilterKey: o.PjaxDefaultFilter}
	if o.PjaxDefaultVersion != "" {
		d[annotation.VersionKey] = o.PjaxDefaultVersion
	}

	return d
}

func loadRoutesFile(o Options) ([]*routing.RouteDef, annotation.Reader, error) {
	var (
		defs   []*routing.RouteDef
		reader annotation.Reader = annotation.NewRegistry()
	)

	if o.RoutesFile != "" {
		data, err := os.ReadFile(o.RoutesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read routes file: %w", err)
		}

		defs, err = routing.ParseRoutes(data)
		if err != nil {
			return nil, nil, err
		}

		r, err := annotation.Parse(data)
		if err != nil {
			return nil, nil, err
		}

		reader = r
	}

	if o.Annotations != nil {
		reader = o.Annotations
	}

	return append(defs, o.Routes...), reader, nil
}

// createFilterRegistry registers the builtin filters, the pjax filters of
// the enabled features and the custom filters. It returns the filters
// prepended to every route.
func createFilterRegistry(o Options, reader annotation.Reader) (filters.Registry, []*routing.FilterDef) {
	registry := builtin.MakeRegistry()
	var prepend []*routing.FilterDef

	if o.PjaxControllerInjection {
		registry.Register(pjax.NewAttributes(o.PjaxAttributeMap))
		prepend = append(prepend, &routing.FilterDef{Name: filters.PjaxAttributesName})
	}

	if o.PjaxAnnotations {
		registry.Register(pjax.New(pjax.Options{
			Reader:      reader,
			Defaults:    o.pjaxDefaults(),
			MaxBodySize: o.PjaxMaxBodySize,
		}))
		prepend = append(prepend, &routing.FilterDef{Name: filters.PjaxName})
	}

	if !o.PjaxAnnotations && !o.PjaxControllerInjection {
		log.Warn("no pjax feature enabled")
	}

	for _, f := range o.CustomFilters {
		registry.Register(f)
	}

	return registry, prepend
}

// NewProxy creates the proxy handler from the options, without starting
// any listener.
func NewProxy(o Options, m metrics.Metrics) (*proxy.Proxy, error) {
	defs, reader, err := loadRoutesFile(o)
	if err != nil {
		return nil, err
	}

	if len(defs) == 0 {
		log.Warn("no routes defined")
	}

	registry, prepend := createFilterRegistry(o, reader)
	rt, err := routing.New(routing.Options{
		FilterRegistry: registry,
		PrependFilters: prepend,
		Handlers:       o.Handlers,
	}, defs)
	if err != nil {
		return nil, err
	}

	var breakers *circuit.Registry
	if len(o.BreakerSettings) > 0 {
		var co circuit.Options
		for _, bs := range o.BreakerSettings {
			if bs.Host == "" {
				co.Defaults = bs
				continue
			}

			co.HostSettings = append(co.HostSettings, bs)
		}

		breakers = circuit.NewRegistry(co)
	}

	timeout := o.BackendTimeout
	if timeout <= 0 {
		timeout = proxy.DefaultTimeout
	}

	return proxy.New(proxy.Params{
		Routing:           rt,
		Metrics:           m,
		Client:            &http.Client{Timeout: timeout},
		CircuitBreakers:   breakers,
		AccessLogDisabled: o.AccessLogDisabled,
	}), nil
}

type listener struct {
	name   string
	server *http.Server
}

func (l listener) listenAndServe() error {
	log.Infof("%s listener on %v", l.name, l.server.Addr)
	if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", l.name, err)
	}

	return nil
}

// RunWithShutdown starts pjaxgate, and shuts it down gracefully when a
// value is received on the sig channel.
func RunWithShutdown(o Options, sig <-chan os.Signal) error {
	if err := logging.Init(logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogOutput:      o.ApplicationLogOutput,
		ApplicationLogLevel:       o.ApplicationLogLevel.String(),
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogOutput:           o.AccessLogOutput,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	}); err != nil {
		return err
	}

	m := metrics.NewPrometheus(metrics.Options{
		Prefix:               o.MetricsPrefix,
		EnableRuntimeMetrics: o.EnableRuntimeMetrics,
		HistogramBuckets:     o.HistogramMetricBuckets,
	})

	p, err := NewProxy(o, m)
	if err != nil {
		return err
	}

	listeners := []listener{{name: "proxy", server: &http.Server{Addr: o.Address, Handler: p}}}
	if o.SupportListener != "" {
		mux := http.NewServeMux()
		m.RegisterHandler("/metrics", mux)
		listeners = append(listeners, listener{name: "support", server: &http.Server{Addr: o.SupportListener, Handler: mux}})
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, l := range listeners {
		g.Go(l.listenAndServe)
	}

	g.Go(func() error {
		select {
		case s := <-sig:
			log.Infof("got shutdown signal: %v", s)
		case <-ctx.Done():
		}

		sctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		for _, l := range listeners {
			if err := l.server.Shutdown(sctx); err != nil {
				log.Errorf("failed to shut down %s listener: %v", l.name, err)
			}
		}

		return nil
	})

	return g.Wait()
}

// Run starts pjaxgate, and blocks until it fails or receives SIGTERM or
// SIGINT.
func Run(o Options) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sig)
	return RunWithShutdown(o, sig)
}
