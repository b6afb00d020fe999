package routing

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/pjaxgate/pjaxgate/filters"
)

const (
	ShuntBackend       = "<shunt>"
	localBackendPrefix = "<local:"
)

// BackendType tells how a route is served.
type BackendType int

const (
	NetworkBackend BackendType = iota
	ShuntBackendType
	LocalBackend
)

// FilterDef is a filter reference in a route definition.
type FilterDef struct {
	Name string        `json:"name"`
	Args []interface{} `json:"args,omitempty"`
}

// RouteDef is the definition of a route.
type RouteDef struct {
	Id         string       `json:"id"`
	Path       string       `json:"path"`
	Method     string       `json:"method,omitempty"`
	Backend    string       `json:"backend"`
	Controller string       `json:"controller,omitempty"`
	Action     string       `json:"action,omitempty"`
	Filters    []*FilterDef `json:"filters,omitempty"`
}

// Document is the YAML/JSON representation of the routes.
type Document struct {
	Routes []*RouteDef `json:"routes"`
}

// Route is a route definition with the filter instances and the parsed
// backend.
type Route struct {
	RouteDef

	Handler      filters.Handler
	BackendType  BackendType
	BackendURL   *url.URL
	LocalHandler http.Handler
	Filters      []filters.Filter
}

// Options for creating the routing.
type Options struct {
	// FilterRegistry is used to create the filter instances of the routes.
	FilterRegistry filters.Registry

	// PrependFilters are created for every route, before the filters of
	// the route definition.
	PrependFilters []*FilterDef

	// Handlers are the in-process backends referenced by <local:name>.
	Handlers map[string]http.Handler
}

// Routing matches the requests to routes. It is immutable after it was
// created.
type Routing struct {
	routes []*Route
}

// ParseRoutes parses route definitions from YAML or JSON data.
func ParseRoutes(data []byte) ([]*RouteDef, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}

	return d.Routes, nil
}

// LoadFile reads route definitions from a YAML or JSON file.
func LoadFile(path string) ([]*RouteDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseRoutes(data)
}

func createFilters(r filters.Registry, defs []*FilterDef) ([]filters.Filter, error) {
	var fs []filters.Filter
	for _, d := range defs {
		spec, ok := r[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownFilter, d.Name)
		}

		f, err := spec.CreateFilter(d.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errInvalidFilterParams, d.Name, err)
		}

		fs = append(fs, f)
	}

	return fs, nil
}

func processBackend(o Options, r *Route) error {
	switch {
	case r.Backend == ShuntBackend:
		r.BackendType = ShuntBackendType
	case strings.HasPrefix(r.Backend, localBackendPrefix) && strings.HasSuffix(r.Backend, ">"):
		name := strings.TrimSuffix(strings.TrimPrefix(r.Backend, localBackendPrefix), ">")
		h, ok := o.Handlers[name]
		if !ok {
			return fmt.Errorf("unknown local handler: %s", name)
		}

		r.BackendType = LocalBackend
		r.LocalHandler = h
	default:
		u, err := url.Parse(r.Backend)
		if err != nil {
			return err
		}

		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("invalid backend address: %s", r.Backend)
		}

		r.BackendType = NetworkBackend
		r.BackendURL = u
	}

	return nil
}

func processRoute(o Options, def *RouteDef) (*Route, error) {
	if !strings.HasPrefix(def.Path, "/") {
		return nil, wrapInvalidDefinition(def.Id, errInvalidPath, nil)
	}

	r := &Route{
		RouteDef: *def,
		Handler:  filters.Handler{Controller: def.Controller, Action: def.Action},
	}

	if err := processBackend(o, r); err != nil {
		return nil, wrapInvalidDefinition(def.Id, errInvalidBackend, err)
	}

	fs, err := createFilters(o.FilterRegistry, append(append([]*FilterDef(nil), o.PrependFilters...), def.Filters...))
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", def.Id, err)
	}

	r.Filters = fs
	return r, nil
}

// New creates the routing from the route definitions. Invalid definitions
// fail the creation.
func New(o Options, defs []*RouteDef) (*Routing, error) {
	ids := make(map[string]bool)
	var routes []*Route
	for _, d := range defs {
		if ids[d.Id] {
			return nil, wrapInvalidDefinition(d.Id, errDuplicateID, nil)
		}

		ids[d.Id] = true
		r, err := processRoute(o, d)
		if err != nil {
			return nil, err
		}

		routes = append(routes, r)
	}

	// longer paths first, routes with method before the ones without
	sort.SliceStable(routes, func(i, j int) bool {
		if len(routes[i].Path) != len(routes[j].Path) {
			return len(routes[i].Path) > len(routes[j].Path)
		}

		return routes[i].Method != "" && routes[j].Method == ""
	})

	log.Infof("route settings applied, %d routes", len(routes))
	return &Routing{routes: routes}, nil
}

// Route returns the route matching the request, or false.
func (r *Routing) Route(req *http.Request) (*Route, bool) {
	for _, ri := range r.routes {
		if ri.Method != "" && !strings.EqualFold(ri.Method, req.Method) {
			continue
		}

		if strings.HasPrefix(req.URL.Path, ri.Path) {
			return ri, true
		}
	}

	return nil, false
}

// Routes returns the routes in matching order.
func (r *Routing) Routes() []*Route {
	return r.routes
}
