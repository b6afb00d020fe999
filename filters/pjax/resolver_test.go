package pjax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjaxgate/pjaxgate/annotation"
	"github.com/pjaxgate/pjaxgate/filters"
)

func mustPjax(t *testing.T, values map[string]interface{}) *annotation.Pjax {
	t.Helper()
	p, err := annotation.New(values)
	require.NoError(t, err)
	return p
}

func TestResolve(t *testing.T) {
	blogShow := filters.Handler{Controller: "blog", Action: "show"}

	for _, tt := range []struct {
		name       string
		controller []interface{}
		action     []interface{}
		defaults   map[string]interface{}
		expected   map[string]interface{}
		none       bool
	}{{
		name: "no annotations",
		none: true,
	}, {
		name:       "only other annotations",
		controller: []interface{}{&annotation.Unknown{Name: "cache"}},
		action:     []interface{}{"route"},
		none:       true,
	}, {
		name:       "action overrides controller",
		controller: []interface{}{mustPjax(t, map[string]interface{}{"filter": true})},
		action:     []interface{}{mustPjax(t, map[string]interface{}{"version": "2"})},
		expected:   map[string]interface{}{"filter": true, "version": "2"},
	}, {
		name:       "action overrides set controller fields",
		controller: []interface{}{mustPjax(t, map[string]interface{}{"filter": true, "version": "1"})},
		action:     []interface{}{mustPjax(t, map[string]interface{}{"filter": false})},
		expected:   map[string]interface{}{"filter": false, "version": "1"},
	}, {
		name:       "controller without action annotation",
		controller: []interface{}{mustPjax(t, map[string]interface{}{"version": "1"})},
		defaults:   map[string]interface{}{"filter": true},
		expected:   map[string]interface{}{"filter": true, "version": "1"},
	}, {
		name:     "defaults fill gaps only",
		action:   []interface{}{mustPjax(t, map[string]interface{}{"filter": true})},
		defaults: map[string]interface{}{"version": "1", "filter": false},
		expected: map[string]interface{}{"filter": true, "version": "1"},
	}, {
		name:     "unset default version",
		action:   []interface{}{mustPjax(t, nil)},
		defaults: map[string]interface{}{"version": nil, "filter": true},
		expected: map[string]interface{}{"filter": true},
	}, {
		name: "first pjax annotation wins",
		controller: []interface{}{
			&annotation.Unknown{Name: "cache"},
			mustPjax(t, map[string]interface{}{"version": "1"}),
			mustPjax(t, map[string]interface{}{"version": "2"}),
		},
		expected: map[string]interface{}{"version": "1"},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			reg := annotation.NewRegistry().
				AddController("blog", tt.controller...).
				AddAction("blog", "show", tt.action...)

			r := &Resolver{Reader: reg, Defaults: tt.defaults}
			p, err := r.Resolve(blogShow)
			require.NoError(t, err)

			if tt.none {
				assert.Nil(t, p)
				return
			}

			require.NotNil(t, p)
			assert.Equal(t, tt.expected, p.ToMap())
		})
	}
}

func TestResolveDoesNotChangeRegistry(t *testing.T) {
	controller := mustPjax(t, map[string]interface{}{"filter": true})
	reg := annotation.NewRegistry().
		AddController("blog", controller).
		AddAction("blog", "show", mustPjax(t, map[string]interface{}{"version": "2"}))

	r := &Resolver{Reader: reg, Defaults: map[string]interface{}{"version": "1"}}
	p, err := r.Resolve(filters.Handler{Controller: "blog", Action: "show"})
	require.NoError(t, err)
	p.SetContainer("#main")

	assert.Equal(t, map[string]interface{}{"filter": true}, controller.ToMap())
	assert.Nil(t, controller.Container)

	p, err = r.Resolve(filters.Handler{Controller: "blog", Action: "index"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"filter": true, "version": "1"}, p.ToMap())
	assert.Nil(t, p.Container)
}

func TestResolveInvalidDefaults(t *testing.T) {
	reg := annotation.NewRegistry().AddAction("blog", "show", mustPjax(t, nil))
	r := &Resolver{Reader: reg, Defaults: map[string]interface{}{"container": "#main"}}

	_, err := r.Resolve(filters.Handler{Controller: "blog", Action: "show"})
	assert.True(t, errors.Is(err, annotation.ErrDisallowedKey))
}

func TestResolveWithoutReader(t *testing.T) {
	p, err := (&Resolver{}).Resolve(filters.Handler{Controller: "blog", Action: "show"})
	assert.NoError(t, err)
	assert.Nil(t, p)
}
