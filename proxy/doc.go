/*
Package proxy implements the HTTP handler of the gateway, applying the
filters of the matched routes around the calls to the backends.

# Proxy Mechanism

1. route matching:

The incoming request is matched to the routes, implemented in
pjaxgate/routing. When no route matches, the proxy responds with 404.

2. request filters:

The request handling method of all filters in the route is executed in the
order they are defined. The filters share a context object, that provides
the incoming request, the response writer, the handler of the route and a
free-form state bag. The filters may modify the request or pass data to
each other, and to in-process backends, using the state bag.

Filters can break the filter chain, serving their own response object. This
prevents the request from reaching the backend. The filters defined in the
route after the one that broke the chain never handle the request.

3.a network backend:

The augmented request is mapped to an outgoing request and executed,
addressing the backend defined by the current route.

3.b local backend:

The request is passed to an in-process http.Handler. The response is
buffered, so that the response filters can work on it the same way as on
the response of a network backend. The handler can access the state bag
of the request with the StateBag function.

3.c shunt:

In case the route is a shunt, an empty response is created with default 404
status.

4. response filters:

The response handling method of all filters that processed the request is
executed in reverse order.

5. response:

The response is written to the client, and an access log entry is printed.

# Sub-requests

In-process backends may dispatch sub-requests through the same routes with
ServeSubRequest. Sub-requests get their own context, marked as such, and
the filters can decide to ignore them.

# Flow Id

Every request gets a flow id in the X-Flow-Id header, unless it already has
one. The flow id is set on the response, and printed in the access log.
*/
package proxy
