package builtin

import "github.com/pjaxgate/pjaxgate/filters"

type statusSpec struct{}

type statusFilter struct {
	code int
}

// NewStatus creates a filter spec for the status() filter, setting the
// status code of the response.
func NewStatus() filters.Spec { return new(statusSpec) }

func (s *statusSpec) Name() string { return StatusName }

func (s *statusSpec) CreateFilter(args []interface{}) (filters.Filter, error) {
	if len(args) != 1 {
		return nil, filters.ErrInvalidFilterParameters
	}

	var code int
	switch c := args[0].(type) {
	case float64:
		code = int(c)
	case int:
		code = c
	default:
		return nil, filters.ErrInvalidFilterParameters
	}

	if code < 100 || code > 999 {
		return nil, filters.ErrInvalidFilterParameters
	}

	return &statusFilter{code}, nil
}

func (f *statusFilter) Request(filters.FilterContext) {}

func (f *statusFilter) Response(ctx filters.FilterContext) {
	ctx.Response().StatusCode = f.code
}
