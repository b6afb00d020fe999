/*
Package filters contains the definitions of the filter interfaces, and the
registry used to create the filter instances of the routes.

Filters are applied to the requests before they are forwarded to the
backend, and to the responses in reverse order. Every filter gets a
FilterContext, giving it access to the request, the response, the handler
of the route and a state bag shared by the filters of the same request.

To create a filter, implement the Spec and Filter interfaces, and register
the spec in the registry passed to the routing, or pass it in the
CustomFilters of the pjaxgate options.

The pjax filters are implemented in the filters/pjax package, a few generic
filters in filters/builtin.
*/
package filters
