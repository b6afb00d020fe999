package annotation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func boolPtr(b bool) *bool          { return &b }
func strPtr(s string) *string       { return &s }
func pjax(f *bool, v *string) *Pjax { return &Pjax{Filter: f, Version: v} }

func TestNew(t *testing.T) {
	for _, tt := range []struct {
		name     string
		values   map[string]interface{}
		expected *Pjax
		err      error
	}{{
		name:     "empty",
		expected: &Pjax{},
	}, {
		name:     "all keys",
		values:   map[string]interface{}{"filter": false, "version": "v1"},
		expected: pjax(boolPtr(false), strPtr("v1")),
	}, {
		name:     "numeric version",
		values:   map[string]interface{}{"version": float64(2)},
		expected: pjax(nil, strPtr("2")),
	}, {
		name:   "container",
		values: map[string]interface{}{"container": "#main"},
		err:    ErrDisallowedKey,
	}, {
		name:   "unknown",
		values: map[string]interface{}{"title": "foo"},
		err:    ErrUnknownKey,
	}, {
		name:   "invalid filter",
		values: map[string]interface{}{"filter": "yes"},
		err:    ErrInvalidValue,
	}, {
		name:   "invalid version",
		values: map[string]interface{}{"version": []string{"1"}},
		err:    ErrInvalidValue,
	}} {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.values)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "unexpected error: %v", err)
				return
			}

			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, p); diff != "" {
				t.Errorf("invalid annotation (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigErrorMessages(t *testing.T) {
	_, err := New(map[string]interface{}{"container": "#main"})
	assert.EqualError(t, err, `key "container" is not allowed for annotation @Pjax`)

	_, err = New(map[string]interface{}{"foo": 1})
	assert.EqualError(t, err, `unknown key "foo" for annotation @Pjax`)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "foo", cerr.Key)
	assert.Equal(t, "Pjax", cerr.Type)
}

func TestMerge(t *testing.T) {
	for _, tt := range []struct {
		name      string
		target    *Pjax
		values    map[string]interface{}
		overwrite bool
		expected  *Pjax
	}{{
		name:      "overwrite set fields",
		target:    pjax(boolPtr(true), strPtr("1")),
		values:    map[string]interface{}{"filter": false, "version": "2"},
		overwrite: true,
		expected:  pjax(boolPtr(false), strPtr("2")),
	}, {
		name:     "preserve set fields",
		target:   pjax(boolPtr(true), nil),
		values:   map[string]interface{}{"filter": false, "version": "1"},
		expected: pjax(boolPtr(true), strPtr("1")),
	}, {
		name:     "nil default does not set",
		target:   &Pjax{},
		values:   map[string]interface{}{"version": nil, "filter": true},
		expected: pjax(boolPtr(true), nil),
	}, {
		name:      "keeps container",
		target:    &Pjax{Container: strPtr("#main")},
		values:    map[string]interface{}{"filter": true},
		overwrite: true,
		expected:  &Pjax{Container: strPtr("#main"), Filter: boolPtr(true)},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.target.Merge(tt.values, tt.overwrite))
			if diff := cmp.Diff(tt.expected, tt.target); diff != "" {
				t.Errorf("invalid merge (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFailedMergeKeepsFields(t *testing.T) {
	p := pjax(boolPtr(true), strPtr("1"))
	err := p.Merge(map[string]interface{}{"version": "2", "zzz": true}, true)
	assert.True(t, errors.Is(err, ErrUnknownKey))
	assert.Equal(t, pjax(boolPtr(true), strPtr("1")), p)
}

func TestMergeAnnotationSkipsContainer(t *testing.T) {
	src := &Pjax{Container: strPtr("#other"), Version: strPtr("2")}
	dst := &Pjax{Container: strPtr("#main")}
	require.NoError(t, dst.MergeAnnotation(src, true))
	assert.Equal(t, &Pjax{Container: strPtr("#main"), Version: strPtr("2")}, dst)
	assert.NoError(t, dst.MergeAnnotation(nil, true))
}

func TestToMap(t *testing.T) {
	p := &Pjax{Container: strPtr("#main"), Filter: boolPtr(false)}
	assert.Equal(t, map[string]interface{}{"filter": false}, p.ToMap())
	assert.Empty(t, (&Pjax{}).ToMap())
}

func TestClone(t *testing.T) {
	p := &Pjax{Container: strPtr("#main"), Filter: boolPtr(true), Version: strPtr("1")}
	c := p.Clone()
	assert.Equal(t, p, c)

	*c.Version = "2"
	c.SetContainer("#other")
	assert.Equal(t, "1", *p.Version)
	assert.Equal(t, "#main", *p.Container)
}

func genPjax(t *rapid.T, label string) *Pjax {
	p := &Pjax{}
	if rapid.Bool().Draw(t, label+"HasFilter") {
		p.Filter = boolPtr(rapid.Bool().Draw(t, label+"Filter"))
	}

	if rapid.Bool().Draw(t, label+"HasVersion") {
		p.Version = strPtr(rapid.String().Draw(t, label+"Version"))
	}

	return p
}

func TestMergeOverwriteProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genPjax(t, "a")
		b := genPjax(t, "b")
		before := a.Clone()

		if err := a.MergeAnnotation(b, true); err != nil {
			t.Fatal(err)
		}

		if b.Filter != nil && *a.Filter != *b.Filter {
			t.Fatalf("filter of source not applied")
		}

		if b.Filter == nil && !cmp.Equal(before.Filter, a.Filter) {
			t.Fatalf("unset filter of source changed the target")
		}

		if b.Version != nil && *a.Version != *b.Version {
			t.Fatalf("version of source not applied")
		}

		if b.Version == nil && !cmp.Equal(before.Version, a.Version) {
			t.Fatalf("unset version of source changed the target")
		}
	})
}

func TestMergePreserveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genPjax(t, "a")
		b := genPjax(t, "b")
		before := a.Clone()

		if err := a.MergeAnnotation(b, false); err != nil {
			t.Fatal(err)
		}

		if before.Filter != nil && *a.Filter != *before.Filter {
			t.Fatalf("set filter changed")
		}

		if before.Version != nil && *a.Version != *before.Version {
			t.Fatalf("set version changed")
		}

		if before.Filter == nil && !cmp.Equal(b.Filter, a.Filter) {
			t.Fatalf("unset filter not filled")
		}

		if before.Version == nil && !cmp.Equal(b.Version, a.Version) {
			t.Fatalf("unset version not filled")
		}
	})
}

func TestMergeInvalidKeyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genPjax(t, "a")
		overwrite := rapid.Bool().Draw(t, "overwrite")
		key := rapid.SampledFrom([]string{"container", "title", "Filter", "", "versions"}).Draw(t, "key")

		err := a.Merge(map[string]interface{}{key: "x"}, overwrite)
		if err == nil {
			t.Fatalf("merging %q did not fail", key)
		}

		if key == "container" && !errors.Is(err, ErrDisallowedKey) {
			t.Fatalf("unexpected error: %v", err)
		}

		if key != "container" && !errors.Is(err, ErrUnknownKey) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
