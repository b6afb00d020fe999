/*
Package pjax implements the filters serving PJAX requests.

PJAX clients, e.g. jquery-pjax, mark their requests with the X-PJAX header
and tell the container that they are going to replace in the
X-PJAX-Container header. For these requests, only the content of the
container is needed, plus the page title.

The pjax() filter resolves the Pjax annotations of the route handler. The
annotation of the controller is used when it exists, and the fields set on
the annotation of the action override it. The configured defaults fill the
fields that are still unset. When an annotation is found, it is stored in the
state bag of the request, under the reserved "_pjax" key, and in the
response phase, successful HTML responses are reduced to the title and the
inner HTML of the requested container:

	routes:
	  - id: blog
	    path: /blog
	    backend: https://blog.example.org
	    controller: blog
	    action: show
	    filters:
	      - name: pjax

The pjaxAttributes() filter copies the PJAX request headers into the state
bag for every request, so that in-process handlers can render partial
content themselves. The names of the state bag keys can be changed with
header name and key pairs:

	    filters:
	      - name: pjaxAttributes
	        args: [X-PJAX, isPjax]

Both filters ignore sub-requests and routes without a controller and action.
*/
package pjax

import (
	"errors"
	"net/http"

	"github.com/pjaxgate/pjaxgate/filters"
)

const (
	// HeaderPjax marks a PJAX request. Only its presence matters.
	HeaderPjax = "X-PJAX"

	// HeaderContainer contains the selector of the container requested by
	// the client.
	HeaderContainer = "X-PJAX-Container"

	// HeaderVersion is set on the response to the configured version.
	HeaderVersion = "X-PJAX-Version"

	// ReservedKey is the state bag key holding the resolved annotation. It
	// can't be used by any other filter.
	ReservedKey = "_pjax"

	DefaultIsPjaxKey    = "_isPjax"
	DefaultContainerKey = "_pjaxContainer"
)

// ErrReservedKey is reported when the reserved state bag key holds a value
// that is not a Pjax annotation.
var ErrReservedKey = errors.New(`state bag key "_pjax" is reserved for Pjax annotations`)

// DefaultAttributeMap maps the PJAX request headers to the state bag keys.
func DefaultAttributeMap() map[string]string {
	return map[string]string{
		HeaderPjax:      DefaultIsPjaxKey,
		HeaderContainer: DefaultContainerKey,
	}
}

// IsPjax tells if the request was sent by a PJAX client.
func IsPjax(r *http.Request) bool {
	_, ok := r.Header[http.CanonicalHeaderKey(HeaderPjax)]
	return ok
}

// RequestedContainer returns the container selector sent by the client.
func RequestedContainer(r *http.Request) (string, bool) {
	v, ok := r.Header[http.CanonicalHeaderKey(HeaderContainer)]
	if !ok || len(v) == 0 {
		return "", false
	}

	return v[0], true
}

func skip(ctx filters.FilterContext) bool {
	return ctx.IsSubRequest() || !ctx.Handler().Inspectable()
}

func count(ctx filters.FilterContext, key string) {
	if m := ctx.Metrics(); m != nil {
		m.IncCounter("pjax." + key)
	}
}
