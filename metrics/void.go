package metrics

import (
	"net/http"
	"time"
)

type void struct{}

// Void is a Metrics implementation that discards everything.
var Void Metrics = void{}

func (void) MeasureSince(string, time.Time)                {}
func (void) IncCounter(string)                             {}
func (void) IncCounterBy(string, int64)                    {}
func (void) MeasureServe(string, string, int, time.Time)   {}
func (void) IncRoutingFailures()                           {}
func (void) IncErrorsBackend(string)                       {}
func (void) RegisterHandler(string, *http.ServeMux)        {}
