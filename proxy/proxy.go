package proxy

import (
	stdlibcontext "context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pjaxgate/pjaxgate/circuit"
	"github.com/pjaxgate/pjaxgate/logging"
	"github.com/pjaxgate/pjaxgate/metrics"
	"github.com/pjaxgate/pjaxgate/routing"
)

const (
	// FlowIDHeader carries the flow id of the requests.
	FlowIDHeader = "X-Flow-Id"

	// DefaultTimeout is used for the backend requests when no client
	// was set in the params.
	DefaultTimeout = 30 * time.Second

	unknownRouteID = "_unknownroute_"
)

// Params are the parameters of the proxy.
type Params struct {
	// Routing is used to find the route of the requests. Required.
	Routing *routing.Routing

	// Metrics collects the serve durations and the custom metrics of the
	// filters. When nil, metrics are discarded.
	Metrics metrics.Metrics

	// Client executes the requests of the network backends. When nil, a
	// client with DefaultTimeout is used. Redirects are never followed.
	Client *http.Client

	// CircuitBreakers provides a registry that the proxy can use to find
	// the matching circuit breaker for the network backend requests. If
	// not set, no circuit breakers are used.
	CircuitBreakers *circuit.Registry

	// AccessLogDisabled disables the access log entries of the proxy.
	AccessLogDisabled bool
}

// Proxy is the http.Handler of the gateway.
type Proxy struct {
	routing           *routing.Routing
	metrics           metrics.Metrics
	client            *http.Client
	breakers          *circuit.Registry
	accessLogDisabled bool
}

type proxyError struct {
	err              error
	code             int
	additionalHeader http.Header
}

func (e *proxyError) Error() string {
	return fmt.Sprintf("proxy error: %v", e.err)
}

func (e *proxyError) Unwrap() error {
	return e.err
}

var (
	errRouteLookup       = errors.New("route lookup failed")
	errRouteLookupFailed = &proxyError{err: errRouteLookup, code: http.StatusNotFound}

	errCircuitBreakerOpen = &proxyError{
		err:              errors.New("circuit breaker open"),
		code:             http.StatusServiceUnavailable,
		additionalHeader: http.Header{"X-Circuit-Open": []string{"true"}},
	}

	hopHeaders = map[string]bool{
		"Te":                  true,
		"Connection":          true,
		"Proxy-Connection":    true,
		"Keep-Alive":          true,
		"Proxy-Authenticate":  true,
		"Proxy-Authorization": true,
		"Trailer":             true,
		"Transfer-Encoding":   true,
		"Upgrade":             true,
	}
)

func copyHeader(to, from http.Header) {
	for k, v := range from {
		to[http.CanonicalHeaderKey(k)] = v
	}
}

func copyHeaderExcluding(to, from http.Header, excludeHeaders map[string]bool) {
	for k, v := range from {
		// The http package converts header names to their canonical version.
		// Meaning that the lookup below will be done using the canonical version of the header.
		if _, ok := excludeHeaders[k]; !ok {
			to[http.CanonicalHeaderKey(k)] = v
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	hh := make(http.Header)
	copyHeader(hh, h)
	return hh
}

func cloneHeaderExcluding(h http.Header, excludeList map[string]bool) http.Header {
	hh := make(http.Header)
	copyHeaderExcluding(hh, h, excludeList)
	return hh
}

// creates an outgoing http request to be forwarded to the route backend
// based on the augmented incoming request
func mapRequest(r *http.Request, rt *routing.Route) (*http.Request, error) {
	u := cloneURL(r.URL)
	u.Scheme = rt.BackendURL.Scheme
	u.Host = rt.BackendURL.Host

	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}

	rr, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}

	rr.ContentLength = r.ContentLength
	rr.Header = cloneHeaderExcluding(r.Header, hopHeaders)
	rr.Host = r.Host
	return rr, nil
}

// New creates a proxy with the given params.
func New(p Params) *Proxy {
	m := p.Metrics
	if m == nil {
		m = metrics.Void
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	noRedirects := *client
	noRedirects.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Proxy{
		routing:           p.Routing,
		metrics:           m,
		client:            &noRedirects,
		breakers:          p.CircuitBreakers,
		accessLogDisabled: p.AccessLogDisabled,
	}
}

var caughtPanic atomic.Bool

func tryCatch(p func(), onErr func(err interface{}, stack string)) {
	defer func() {
		if err := recover(); err != nil {
			s := ""
			if caughtPanic.CompareAndSwap(false, true) {
				buf := make([]byte, 1024)
				l := runtime.Stack(buf, false)
				s = string(buf[:l])
			}
			onErr(err, s)
		}
	}()

	p()
}

// applies filters to a request
func (p *Proxy) applyFiltersToRequest(ctx *context) int {
	if len(ctx.route.Filters) == 0 {
		return 0
	}

	defer p.metrics.MeasureSince("allfilters.request."+ctx.route.Id, time.Now())

	processed := 0
	for _, fi := range ctx.route.Filters {
		tryCatch(func() {
			fi.Request(ctx)
		}, func(err interface{}, stack string) {
			log.Errorf("error while processing filter during request: %s: %v (%s)", ctx.route.Id, err, stack)
		})

		processed++
		if ctx.deprecatedShunted() || ctx.shunted() {
			break
		}
	}

	return processed
}

// applies filters to a response in reverse order
func (p *Proxy) applyFiltersToResponse(ctx *context, processed int) {
	if processed == 0 {
		return
	}

	defer p.metrics.MeasureSince("allfilters.response."+ctx.route.Id, time.Now())

	for i := processed - 1; i >= 0; i-- {
		fi := ctx.route.Filters[i]
		tryCatch(func() {
			fi.Response(ctx)
		}, func(err interface{}, stack string) {
			log.Errorf("error while processing filters during response: %s: %v (%s)", ctx.route.Id, err, stack)
		})
	}
}

func (p *Proxy) checkBreaker(rt *routing.Route) (circuit.Done, bool) {
	if p.breakers == nil {
		return nil, true
	}

	b := p.breakers.Get(circuit.BreakerSettings{Host: rt.BackendURL.Host})
	if b == nil {
		return nil, true
	}

	return b.Allow()
}

func (p *Proxy) makeBackendRequest(ctx *context) (*http.Response, error) {
	rt := ctx.route
	switch rt.BackendType {
	case routing.ShuntBackendType:
		return nil, nil
	case routing.LocalBackend:
		w := newBufferedWriter()
		r := ctx.request.WithContext(stdlibcontext.WithValue(ctx.request.Context(), stateBagKey{}, ctx.stateBag))
		rt.LocalHandler.ServeHTTP(w, r)
		return w.response(ctx.request), nil
	default:
		req, err := mapRequest(ctx.request, rt)
		if err != nil {
			return nil, &proxyError{err: err, code: http.StatusInternalServerError}
		}

		done, allow := p.checkBreaker(rt)
		if !allow {
			return nil, errCircuitBreakerOpen
		}

		rsp, err := p.client.Do(req)
		if done != nil {
			done(rsp, err)
		}

		if err != nil {
			p.metrics.IncErrorsBackend(rt.Id)
			return nil, &proxyError{err: err, code: http.StatusBadGateway}
		}

		return rsp, nil
	}
}

func (p *Proxy) do(ctx *context) error {
	rt, ok := p.routing.Route(ctx.request)
	if !ok {
		p.metrics.IncRoutingFailures()
		log.Debugf("could not find a route for %v", ctx.request.URL)
		return errRouteLookupFailed
	}

	ctx.route = rt
	processed := p.applyFiltersToRequest(ctx)

	if !ctx.deprecatedShunted() && !ctx.shunted() {
		rsp, err := p.makeBackendRequest(ctx)
		if err != nil {
			return err
		}

		ctx.response = rsp
	}

	if ctx.deprecatedShunted() {
		log.Debugf("deprecated shunting detected in route: %s", rt.Id)
		return nil
	}

	ctx.ensureDefaultResponse()
	p.applyFiltersToResponse(ctx, processed)
	return nil
}

func (p *Proxy) serveResponse(ctx *context) {
	copyHeaderExcluding(ctx.responseWriter.Header(), ctx.response.Header, hopHeaders)
	ctx.responseWriter.Header().Set(FlowIDHeader, ctx.flowID)
	ctx.responseWriter.WriteHeader(ctx.response.StatusCode)
	if _, err := io.Copy(ctx.responseWriter, ctx.response.Body); err != nil {
		log.Errorf("error while copying the response stream: %v", err)
	}
}

// send a premature error response
func (p *Proxy) sendError(c *context, code int) {
	c.responseWriter.Header().Set(FlowIDHeader, c.flowID)
	http.Error(c.responseWriter, http.StatusText(code), code)
}

func (p *Proxy) errorResponse(ctx *context, err error) {
	code := http.StatusInternalServerError
	var perr *proxyError
	if errors.As(err, &perr) {
		if perr.code != 0 {
			code = perr.code
		}

		copyHeader(ctx.responseWriter.Header(), perr.additionalHeader)
	}

	if err != errRouteLookupFailed {
		backend := ""
		if ctx.route != nil {
			backend = ctx.route.Backend
		}

		log.Errorf("error while proxying, route %s with backend %s, status code %d: %v", ctx.routeID(), backend, code, err)
	}

	p.sendError(ctx, code)
}

func (p *Proxy) serve(w http.ResponseWriter, r *http.Request, subRequest bool) {
	lw := logging.NewLoggingWriter(w)

	flowID := r.Header.Get(FlowIDHeader)
	if flowID == "" {
		flowID = uuid.New().String()
		r.Header.Set(FlowIDHeader, flowID)
	}

	ctx := newContext(lw, r, subRequest, p.metrics)
	ctx.flowID = flowID

	defer func() {
		if ctx.response != nil && ctx.response.Body != nil {
			if err := ctx.response.Body.Close(); err != nil {
				log.Errorf("error during closing the response body: %v", err)
			}
		}
	}()

	if !p.accessLogDisabled {
		defer func() {
			logging.LogAccess(&logging.AccessEntry{
				Request:      r,
				ResponseSize: lw.GetBytes(),
				StatusCode:   lw.GetCode(),
				RequestTime:  ctx.startServe,
				Duration:     time.Since(ctx.startServe),
				FlowID:       flowID,
				RouteID:      ctx.routeID(),
			})
		}()
	}

	if err := p.do(ctx); err != nil {
		p.errorResponse(ctx, err)
		p.metrics.MeasureServe(ctx.routeID(), r.Method, lw.GetCode(), ctx.startServe)
		return
	}

	if ctx.deprecatedShunted() {
		return
	}

	p.serveResponse(ctx)
	p.metrics.MeasureServe(ctx.routeID(), r.Method, ctx.response.StatusCode, ctx.startServe)
}

// ServeHTTP handles the requests received from the clients.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, false)
}

// ServeSubRequest handles a request dispatched internally while processing
// another request. The filters see it as a sub-request.
func (p *Proxy) ServeSubRequest(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, true)
}
