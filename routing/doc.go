/*
Package routing implements matching of the incoming requests to the routes
of the gateway.

Routes are defined in a YAML or JSON document, usually in the same file that
contains the annotations of the controllers:

	routes:
	  - id: blog_show
	    path: /blog/
	    backend: http://127.0.0.1:8080
	    controller: blog
	    action: show
	    filters:
	      - name: pjaxAttributes
	        args: [X-PJAX, isPjax]
	  - id: health
	    path: /health
	    backend: <shunt>

A request matches the route with the longest path prefix, and optionally with
the same method. The controller and the action of the route identify the
handler whose annotations are used by the pjax filters. Routes without a
controller or without an action are served, but their handler can't be
inspected.

The backend of a route can be a network address, <shunt> for routes whose
response is created by the filters, or <local:name> referencing an
in-process http.Handler registered in the options.

The route definitions are converted to routes with real filter instances
using the filter registry. The filters listed in Options.PrependFilters are
created for every route, before the filters of the route.
*/
package routing
