// Package builtin provides a small set of generic filters that are
// registered next to the pjax filters, to serve simple routes without a
// backend.
package builtin

import "github.com/pjaxgate/pjaxgate/filters"

const (
	InlineContentName = "inlineContent"
	StatusName        = "status"
)

// MakeRegistry returns a registry with the builtin filters.
func MakeRegistry() filters.Registry {
	r := make(filters.Registry)
	for _, s := range []filters.Spec{
		NewInlineContent(),
		NewStatus(),
	} {
		r.Register(s)
	}

	return r
}
