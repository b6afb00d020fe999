package pjax

import (
	"fmt"

	"github.com/pjaxgate/pjaxgate/annotation"
	"github.com/pjaxgate/pjaxgate/filters"
)

// Resolver finds the effective Pjax annotation of a handler.
type Resolver struct {
	Reader annotation.Reader

	// Defaults fill the fields that neither the controller nor the action
	// annotation sets.
	Defaults map[string]interface{}
}

func firstPjax(a []interface{}) (*annotation.Pjax, bool) {
	for _, ai := range a {
		if p, ok := ai.(*annotation.Pjax); ok && p != nil {
			return p, true
		}
	}

	return nil, false
}

// Resolve returns the Pjax annotation of the handler, or nil when neither
// the controller nor the action has one. The returned annotation is a copy,
// it can be changed by the caller.
func (r *Resolver) Resolve(h filters.Handler) (*annotation.Pjax, error) {
	if r.Reader == nil {
		return nil, nil
	}

	if cp, ok := firstPjax(r.Reader.ControllerAnnotations(h.Controller)); ok {
		p := cp.Clone()
		if ap, ok := firstPjax(r.Reader.ActionAnnotations(h.Controller, h.Action)); ok {
			if err := p.MergeAnnotation(ap, true); err != nil {
				return nil, fmt.Errorf("failed to merge action annotation of %v: %w", h, err)
			}
		}

		if err := p.Merge(r.Defaults, false); err != nil {
			return nil, fmt.Errorf("failed to merge defaults for %v: %w", h, err)
		}

		return p, nil
	}

	if ap, ok := firstPjax(r.Reader.ActionAnnotations(h.Controller, h.Action)); ok {
		p := ap.Clone()
		if err := p.Merge(r.Defaults, false); err != nil {
			return nil, fmt.Errorf("failed to merge defaults for %v: %w", h, err)
		}

		return p, nil
	}

	return nil, nil
}
