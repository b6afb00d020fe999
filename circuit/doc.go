/*
Package circuit implements the backend circuit breakers of the proxy.

The breakers are assigned to backend hosts, so that the failures of one
host never affect the requests to another one. A breaker opens when the
proxy couldn't connect to a backend, or received a >=500 status code, at
least N times in a row. While open, the proxy responds with 503 Service
Unavailable, until the configured timeout passes. Then the breaker goes
into half-open state, and lets through the configured number of requests.
If any of them fails, it opens again, otherwise it closes.

In-process and shunt backends don't have breakers.

The following command starts pjaxgate with a breaker that opens after 5
consecutive failures, and stays open for 30 seconds:

	pjaxgate -breaker-failures 5 -breaker-timeout 30s
*/
package circuit
