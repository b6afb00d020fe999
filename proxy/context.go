package proxy

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pjaxgate/pjaxgate/filters"
	"github.com/pjaxgate/pjaxgate/metrics"
	"github.com/pjaxgate/pjaxgate/routing"
)

type context struct {
	responseWriter     http.ResponseWriter
	request            *http.Request
	response           *http.Response
	route              *routing.Route
	deprecatedServed   bool
	servedWithResponse bool // to support the deprecated way independently
	stateBag           map[string]interface{}
	originalRequest    *http.Request
	subRequest         bool
	metrics            metrics.Metrics
	flowID             string
	startServe         time.Time
}

func defaultBody() io.ReadCloser {
	return io.NopCloser(&bytes.Buffer{})
}

func defaultResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       defaultBody(),
		Request:    r,
	}
}

func cloneURL(u *url.URL) *url.URL {
	uc := *u
	return &uc
}

func cloneRequestMetadata(r *http.Request) *http.Request {
	return &http.Request{
		Method:        r.Method,
		URL:           cloneURL(r.URL),
		Proto:         r.Proto,
		ProtoMajor:    r.ProtoMajor,
		ProtoMinor:    r.ProtoMinor,
		Header:        cloneHeader(r.Header),
		Body:          defaultBody(),
		ContentLength: r.ContentLength,
		Host:          r.Host,
		RemoteAddr:    r.RemoteAddr,
		RequestURI:    r.RequestURI,
		TLS:           r.TLS,
	}
}

func newContext(w http.ResponseWriter, r *http.Request, subRequest bool, m metrics.Metrics) *context {
	return &context{
		responseWriter:  w,
		request:         r,
		stateBag:        make(map[string]interface{}),
		originalRequest: cloneRequestMetadata(r),
		subRequest:      subRequest,
		metrics:         m,
		startServe:      time.Now(),
	}
}

func (c *context) ensureDefaultResponse() {
	if c.response == nil {
		c.response = defaultResponse(c.request)
		return
	}

	if c.response.Header == nil {
		c.response.Header = make(http.Header)
	}

	if c.response.Body == nil {
		c.response.Body = defaultBody()
	}
}

func (c *context) deprecatedShunted() bool {
	return c.deprecatedServed
}

func (c *context) shunted() bool {
	return c.servedWithResponse
}

func (c *context) routeID() string {
	if c.route == nil {
		return unknownRouteID
	}

	return c.route.Id
}

func (c *context) ResponseWriter() http.ResponseWriter { return c.responseWriter }
func (c *context) Request() *http.Request              { return c.request }
func (c *context) Response() *http.Response            { return c.response }
func (c *context) MarkServed()                         { c.deprecatedServed = true }
func (c *context) Served() bool                        { return c.deprecatedServed || c.servedWithResponse }
func (c *context) StateBag() map[string]interface{}    { return c.stateBag }
func (c *context) OriginalRequest() *http.Request      { return c.originalRequest }
func (c *context) IsSubRequest() bool                  { return c.subRequest }
func (c *context) Metrics() filters.Metrics            { return c.metrics }

func (c *context) Handler() filters.Handler {
	if c.route == nil {
		return filters.Handler{}
	}

	return c.route.Handler
}

func (c *context) Serve(r *http.Response) {
	r.Request = c.Request()

	if r.Header == nil {
		r.Header = make(http.Header)
	}

	if r.Body == nil {
		r.Body = defaultBody()
	}

	c.servedWithResponse = true
	c.response = r
}
