/*
Package pjaxgate provides an HTTP gateway serving PJAX requests for the
controllers behind it.

PJAX clients, e.g. jquery-pjax, load pages with XHR requests marked with
the X-PJAX header, and replace only a container of the current page with
the response. pjaxgate works as a reverse proxy in front of the
applications: it matches the requests to routes, and for the PJAX requests
it reduces the HTML responses to the title and the content of the requested
container, according to the Pjax annotations of the controller and the
action that the route dispatches to.

# Quickstart

Create a file with the annotations and the routes:

	controllers:
	  blog:
	    annotations:
	      - pjax: {filter: true}
	    actions:
	      show:
	        annotations:
	          - pjax: {version: "2"}
	routes:
	  - id: blog_show
	    path: /blog/
	    backend: http://127.0.0.1:8080
	    controller: blog
	    action: show

Start pjaxgate and make a PJAX request:

	pjaxgate -routes-file routes.yaml -pjax-annotations &
	curl -H 'X-PJAX: true' -H 'X-PJAX-Container: #main' localhost:9090/blog/1

# Features

Two features can be enabled independently:

With -pjax-annotations, every route gets the pjax() filter, resolving the
annotations of the route handler, and filtering the responses of the PJAX
requests. See the filters/pjax package.

With -pjax-controller-injection, every route gets the pjaxAttributes()
filter, storing the PJAX request headers in the state bag of the request,
where in-process handlers can read them with proxy.StateBag.

# Embedding

The gateway can be started from Go code with Run, passing in-process
handlers in Options.Handlers and referencing them from the routes with
<local:name> backends.
*/
package pjaxgate
