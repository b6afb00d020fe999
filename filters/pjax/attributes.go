package pjax

import (
	"fmt"
	"strings"

	"github.com/pjaxgate/pjaxgate/filters"
)

type attributesSpec struct {
	keys map[string]string
}

type attributes struct {
	isPjaxKey    string
	containerKey string
}

// ValidateAttributeMap checks that the map contains only the PJAX request
// headers, and that none of them is mapped to an empty or to the reserved
// key. It returns the map with the canonical header names.
func ValidateAttributeMap(m map[string]string) (map[string]string, error) {
	v := make(map[string]string, len(m))
	for header, key := range m {
		var h string
		switch {
		case strings.EqualFold(header, HeaderPjax):
			h = HeaderPjax
		case strings.EqualFold(header, HeaderContainer):
			h = HeaderContainer
		default:
			return nil, fmt.Errorf("unknown pjax header: %s", header)
		}

		if key == "" {
			return nil, fmt.Errorf("empty state bag key for header %s", h)
		}

		if key == ReservedKey {
			return nil, fmt.Errorf("the value of %q must be not equal to %q", h, ReservedKey)
		}

		v[h] = key
	}

	return v, nil
}

// NewAttributes creates the specification of the pjaxAttributes() filter.
// The keys override the default mapping from the PJAX headers to the state
// bag keys. Invalid keys make every filter creation fail.
func NewAttributes(keys map[string]string) filters.Spec {
	return &attributesSpec{keys: keys}
}

func (*attributesSpec) Name() string { return filters.PjaxAttributesName }

// CreateFilter accepts header name and state bag key pairs, overriding the
// mapping of the specification.
func (s *attributesSpec) CreateFilter(args []interface{}) (filters.Filter, error) {
	override, err := filters.StringPairArgs(args)
	if err != nil {
		return nil, filters.ErrInvalidFilterParameters
	}

	keys := DefaultAttributeMap()
	for _, m := range []map[string]string{s.keys, override} {
		vm, err := ValidateAttributeMap(m)
		if err != nil {
			return nil, err
		}

		for h, k := range vm {
			keys[h] = k
		}
	}

	return &attributes{
		isPjaxKey:    keys[HeaderPjax],
		containerKey: keys[HeaderContainer],
	}, nil
}

// Request sets the PJAX state bag keys, regardless of the annotations.
func (a *attributes) Request(ctx filters.FilterContext) {
	if skip(ctx) {
		return
	}

	req := ctx.Request()
	sb := ctx.StateBag()
	sb[a.isPjaxKey] = IsPjax(req)
	if c, ok := RequestedContainer(req); ok {
		sb[a.containerKey] = c
	} else {
		delete(sb, a.containerKey)
	}
}

func (*attributes) Response(filters.FilterContext) {}
