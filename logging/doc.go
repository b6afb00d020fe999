/*
Package logging implements application log instrumentation and Apache
combined access log.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import this package and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to set the log level, to
switch to JSON output, to redirect the log output from the default
/dev/stderr to another writer, and to set a common prefix for each log
entry. Setting the prefix may be a good idea when the access log is enabled
and its output is the same as the one of the application log, to make it
easier to split the output for diagnostics.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the duration of the request in
milliseconds, the requested host and the flow id. To output entries, use
the LogAccess function. The proxy calls it for every served request unless
the access log was disabled.
*/
package logging
