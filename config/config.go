package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/pjaxgate/pjaxgate"
	"github.com/pjaxgate/pjaxgate/circuit"
	"github.com/pjaxgate/pjaxgate/filters/pjax"
	"github.com/pjaxgate/pjaxgate/proxy"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address         string        `yaml:"address"`
	SupportListener string        `yaml:"support-listener"`
	RoutesFile      string        `yaml:"routes-file"`
	BackendTimeout  time.Duration `yaml:"backend-timeout"`

	// circuit breakers:
	BreakerFailures         int           `yaml:"breaker-failures"`
	BreakerTimeout          time.Duration `yaml:"breaker-timeout"`
	BreakerHalfOpenRequests int           `yaml:"breaker-half-open-requests"`
	BreakerIdleTTL          time.Duration `yaml:"breaker-idle-ttl"`

	// logging, metrics:
	ApplicationLog               string    `yaml:"application-log"`
	ApplicationLogLevel          log.Level `yaml:"-"`
	ApplicationLogLevelString    string    `yaml:"application-log-level"`
	ApplicationLogPrefix         string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled    bool      `yaml:"application-log-json-enabled"`
	AccessLog                    string    `yaml:"access-log"`
	AccessLogDisabled            bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled         bool      `yaml:"access-log-json-enabled"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	RuntimeMetrics               bool      `yaml:"runtime-metrics"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`

	// pjax:
	PjaxAnnotations         bool              `yaml:"pjax-annotations"`
	PjaxDefaultVersion      string            `yaml:"pjax-default-version"`
	PjaxDefaultFilter       bool              `yaml:"pjax-default-filter"`
	PjaxMaxBodySize         int64             `yaml:"pjax-max-body-size"`
	PjaxControllerInjection bool              `yaml:"pjax-controller-injection"`
	PjaxAttributeMapFlag    *mapFlags         `yaml:"pjax-attribute-map"`
	PjaxAttributeMap        map[string]string `yaml:"-"`
}

const (
	defaultApplicationLogLevel = "INFO"
	defaultPjaxMaxBodySize     = 8 << 20
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.PjaxAttributeMapFlag = newMapFlags()
	cfg.PjaxAttributeMapFlag.values = pjax.DefaultAttributeMap()

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":9090", "network address that pjaxgate should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", ":9911", "network address used for exposing the /metrics endpoint")
	flag.StringVar(&cfg.RoutesFile, "routes-file", "", "file containing the routes and the controller annotations (yaml or json)")
	flag.DurationVar(&cfg.BackendTimeout, "backend-timeout", proxy.DefaultTimeout, "timeout of the requests to the network backends")

	// circuit breakers:
	flag.IntVar(&cfg.BreakerFailures, "breaker-failures", 0, "consecutive failures of a backend host that open its circuit breaker, 0 disables the breakers")
	flag.DurationVar(&cfg.BreakerTimeout, "breaker-timeout", 60*time.Second, "time an open circuit breaker waits before going half-open")
	flag.IntVar(&cfg.BreakerHalfOpenRequests, "breaker-half-open-requests", 1, "successful requests needed in half-open state to close a circuit breaker")
	flag.DurationVar(&cfg.BreakerIdleTTL, "breaker-idle-ttl", circuit.DefaultIdleTTL, "time after which an unused circuit breaker is recycled")

	// logging, metrics:
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLogLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", "[APP]", "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.AccessLog, "access-log", "", "output file for the access log, When not set, /dev/stderr is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "pjaxgate", "allows setting a custom namespace for the metrics")
	flag.BoolVar(&cfg.RuntimeMetrics, "runtime-metrics", true, "enables reporting the Go runtime and process metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")

	// pjax:
	flag.BoolVar(&cfg.PjaxAnnotations, "pjax-annotations", false, "enables the pjax filter, reducing the responses of PJAX requests to the requested container according to the handler annotations")
	flag.StringVar(&cfg.PjaxDefaultVersion, "pjax-default-version", "", "version sent in the X-PJAX-Version header when the annotations of a handler don't set one")
	flag.BoolVar(&cfg.PjaxDefaultFilter, "pjax-default-filter", true, "filter the responses when the annotations of a handler don't decide it")
	flag.Int64Var(&cfg.PjaxMaxBodySize, "pjax-max-body-size", defaultPjaxMaxBodySize, "responses larger than this are not filtered, 0 means no limit")
	flag.BoolVar(&cfg.PjaxControllerInjection, "pjax-controller-injection", false, "enables the pjaxAttributes filter, storing the PJAX request headers in the state bag")
	flag.Var(cfg.PjaxAttributeMapFlag, "pjax-attribute-map", "state bag keys of the PJAX request headers, e.g. X-PJAX=_isPjax,X-PJAX-Container=_pjaxContainer")

	cfg.Flags = flag
	return cfg
}

// keys in YAML files may use underscores in place of dashes
func normalizeAttributeMap(m map[string]string) map[string]string {
	n := make(map[string]string, len(m))
	for k, v := range m {
		n[strings.ReplaceAll(k, "_", "-")] = v
	}

	return n
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	if err != nil {
		return err
	}

	if c.BreakerFailures < 0 {
		return fmt.Errorf("invalid breaker-failures: %d", c.BreakerFailures)
	}

	if c.PjaxMaxBodySize < 0 {
		return fmt.Errorf("invalid pjax-max-body-size: %d", c.PjaxMaxBodySize)
	}

	_, err = pjax.ValidateAttributeMap(normalizeAttributeMap(c.PjaxAttributeMapFlag.values))
	if err != nil {
		return fmt.Errorf("invalid pjax-attribute-map: %w", err)
	}

	return nil
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	c.PjaxAttributeMap, _ = pjax.ValidateAttributeMap(normalizeAttributeMap(c.PjaxAttributeMapFlag.values))

	if !c.PjaxAnnotations && !c.PjaxControllerInjection {
		log.Warn("neither pjax-annotations nor pjax-controller-injection is enabled, PJAX requests are proxied unchanged")
	}

	return nil
}

func (c *Config) ToOptions() pjaxgate.Options {
	options := pjaxgate.Options{
		// generic:
		Address:         c.Address,
		SupportListener: c.SupportListener,
		RoutesFile:      c.RoutesFile,
		BackendTimeout:  c.BackendTimeout,

		// logging, metrics:
		ApplicationLogLevel:       c.ApplicationLogLevel,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,
		MetricsPrefix:             c.MetricsPrefix,
		EnableRuntimeMetrics:      c.RuntimeMetrics,
		HistogramMetricBuckets:    c.HistogramMetricBuckets,

		// pjax:
		PjaxAnnotations:         c.PjaxAnnotations,
		PjaxDefaultVersion:      c.PjaxDefaultVersion,
		PjaxDefaultFilter:       c.PjaxDefaultFilter,
		PjaxMaxBodySize:         c.PjaxMaxBodySize,
		PjaxControllerInjection: c.PjaxControllerInjection,
		PjaxAttributeMap:        c.PjaxAttributeMap,
	}

	if c.BreakerFailures > 0 {
		options.BreakerSettings = []circuit.BreakerSettings{{
			Type:             circuit.ConsecutiveFailures,
			Failures:         c.BreakerFailures,
			Timeout:          c.BreakerTimeout,
			HalfOpenRequests: c.BreakerHalfOpenRequests,
			IdleTTL:          c.BreakerIdleTTL,
		}}
	}

	if c.ApplicationLog != "" {
		f, err := os.OpenFile(c.ApplicationLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Errorf("failed to open application log: %v", err)
		} else {
			options.ApplicationLogOutput = f
		}
	}

	if c.AccessLog != "" {
		f, err := os.OpenFile(c.AccessLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Errorf("failed to open access log: %v", err)
		} else {
			options.AccessLogOutput = f
		}
	}

	return options
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
