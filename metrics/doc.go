/*
Package metrics implements collection of the gateway metrics.

It uses the Prometheus client library. The collected metrics include the
total request processing time per route, the number of requests without a
matching route, the number of backend errors and the custom counters and
timers that filters report through the filters.Metrics interface, e.g. the
outcome of the PJAX response filtering.

To expose the metrics, the handler returned by CreateHandler needs to be
registered on a listener. By default, the support listener serves it on the
/metrics path.
*/
package metrics
