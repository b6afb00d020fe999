package filters

import (
	"errors"
	"net/http"
	"time"
)

const (
	// PjaxName is the name of the filter resolving the PJAX configuration
	// of a handler and reducing its responses to the requested container.
	PjaxName = "pjax"

	// PjaxAttributesName is the name of the filter copying the PJAX request
	// headers into the state bag.
	PjaxAttributesName = "pjaxAttributes"
)

// ErrInvalidFilterParameters is used in case of invalid filter parameters.
var ErrInvalidFilterParameters = errors.New("invalid filter parameters")

// Handler identifies the controller and the action that a route dispatches
// to. Handlers without a controller or without an action can't be inspected
// for annotations.
type Handler struct {
	Controller string
	Action     string
}

// Inspectable tells if annotations can be looked up for the handler.
func (h Handler) Inspectable() bool {
	return h.Controller != "" && h.Action != ""
}

func (h Handler) String() string {
	return h.Controller + "::" + h.Action
}

// FilterContext object providing state and information that is unique to a
// request.
type FilterContext interface {
	// The response writer object belonging to the incoming request. Used by
	// filters that handle the requests themselves.
	ResponseWriter() http.ResponseWriter

	// The incoming request object. It is forwarded to the route endpoint
	// with its properties changed by the filters.
	Request() *http.Request

	// The response object. It is returned to the client with its
	// properties changed by the filters.
	Response() *http.Response

	// The copy of the request object, not affected by the filters.
	OriginalRequest() *http.Request

	// This method is deprecated. A FilterContext implementation should flag
	// this state internally.
	MarkServed()

	// Serve a request with the provided response. It can be used by filters
	// that handle the requests themselves. Calling Serve() sets a flag in
	// the context, and the filters processed after it are skipped.
	Serve(*http.Response)

	// Served returns true if the request was handled by a filter.
	Served() bool

	// Provides storage for the lifetime of the request. Filters of the same
	// route can use it to share data with each other and with the handler.
	StateBag() map[string]interface{}

	// Handler returns the controller and action of the current route.
	Handler() Handler

	// IsSubRequest tells if the request was dispatched internally, as part
	// of processing another request, instead of received from a client.
	IsSubRequest() bool

	// Gives filters access to the metrics registry.
	Metrics() Metrics
}

// Metrics provides possibility to use custom metrics from filter
// implementations. The metrics are prefixed with the name of the filter.
type Metrics interface {
	// MeasureSince adds values to a timer with a custom key.
	MeasureSince(key string, start time.Time)

	// IncCounter increments a custom counter identified by its key.
	IncCounter(key string)

	// IncCounterBy increments a custom counter identified by its key by a
	// certain value.
	IncCounterBy(key string, value int64)
}

// Filters are created by the Spec components, optionally using filter
// specific settings. When implementing filters, it needs to be taken into
// consideration, that filter instances are route specific and not request
// specific, so any state stored with a filter is shared between all requests
// for the same route and can cause concurrency issues.
type Filter interface {
	// The Request method is called while processing the incoming request.
	Request(FilterContext)

	// The Response method is called while processing the response to be
	// returned.
	Response(FilterContext)
}

// Spec objects are specifications for filters. When initializing the
// routes, the Filter instances are created using the Spec objects found in
// the registry.
type Spec interface {
	// Name gives the name of the Spec. It is used to identify filters in a
	// route definition.
	Name() string

	// CreateFilter creates a Filter instance. Called with the parameters in
	// the route definition while initializing a route.
	CreateFilter(config []interface{}) (Filter, error)
}
