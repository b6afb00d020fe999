package pjax

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/pjaxgate/pjaxgate/annotation"
	"github.com/pjaxgate/pjaxgate/filters"
)

// Options of the pjax() filter specification.
type Options struct {
	// Reader provides the annotations of the route handlers.
	Reader annotation.Reader

	// Defaults are merged into the resolved annotations without
	// overwriting the fields that are already set.
	Defaults map[string]interface{}

	// MaxBodySize limits the size of the response bodies that are
	// filtered. Larger responses are returned unchanged. Zero means no
	// limit.
	MaxBodySize int64
}

type spec struct {
	options Options
}

type filter struct {
	resolver    *Resolver
	maxBodySize int64
}

// New creates the specification of the pjax() filter. The filter doesn't
// accept arguments.
func New(o Options) filters.Spec {
	return &spec{options: o}
}

func (*spec) Name() string { return filters.PjaxName }

func (s *spec) CreateFilter(args []interface{}) (filters.Filter, error) {
	if len(args) != 0 {
		return nil, filters.ErrInvalidFilterParameters
	}

	// invalid defaults would fail every request
	if _, err := annotation.New(s.options.Defaults); err != nil {
		return nil, err
	}

	return &filter{
		resolver: &Resolver{
			Reader:   s.options.Reader,
			Defaults: s.options.Defaults,
		},
		maxBodySize: s.options.MaxBodySize,
	}, nil
}

func serveStatus(ctx filters.FilterContext, code int) {
	text := http.StatusText(code)
	ctx.Serve(&http.Response{
		StatusCode:    code,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		ContentLength: int64(len(text)),
		Body:          io.NopCloser(bytes.NewBufferString(text)),
	})
}

// Request stores the resolved annotation of PJAX requests in the state bag.
func (f *filter) Request(ctx filters.FilterContext) {
	if skip(ctx) {
		return
	}

	req := ctx.Request()
	if !IsPjax(req) {
		return
	}

	count(ctx, "requests")

	h := ctx.Handler()
	p, err := f.resolver.Resolve(h)
	if err != nil {
		log.Errorf("Failed to resolve pjax annotation of %v: %v", h, err)
		count(ctx, "errors")
		serveStatus(ctx, http.StatusInternalServerError)
		return
	}

	if p == nil {
		return
	}

	if c, ok := RequestedContainer(req); ok {
		p.SetContainer(c)
	}

	ctx.StateBag()[ReservedKey] = p
	count(ctx, "attached")
}

// Response reduces the successful HTML responses to the requested container.
func (f *filter) Response(ctx filters.FilterContext) {
	if ctx.IsSubRequest() {
		return
	}

	v, ok := ctx.StateBag()[ReservedKey]
	if !ok || v == nil {
		return
	}

	p, ok := v.(*annotation.Pjax)
	if !ok {
		log.Errorf("%v, found: %T", ErrReservedKey, v)
		count(ctx, "response."+string(outcomeReservedKeyError))
		serveStatus(ctx, http.StatusInternalServerError)
		return
	}

	rsp := ctx.Response()
	if rsp == nil {
		return
	}

	if rsp.StatusCode != http.StatusOK || !strings.HasPrefix(rsp.Header.Get("Content-Type"), "text/html") {
		count(ctx, "response."+string(outcomeSkipped))
		return
	}

	if version, ok := p.VersionValue(); ok {
		rsp.Header.Set(HeaderVersion, version)
	}

	o, err := filterBody(rsp, p, f.maxBodySize)
	if o == outcomeBodyError {
		log.Errorf("Failed to read the response body of %v: %v", ctx.Handler(), err)
		serveStatus(ctx, http.StatusBadGateway)
	} else if err != nil {
		log.Debugf("Response of %v not filtered (%s): %v", ctx.Handler(), o, err)
	}

	count(ctx, "response."+string(o))
}
