/*
Package annotation holds the declarative, per-handler configuration of the
gateway and the registry used to look it up.

The Pjax annotation describes how a PJAX response of a handler is produced: if
the response body should be reduced to the requested container (filter), and
which version should be reported to the client (version). The container itself
is never part of a declaration, it is always taken from the incoming request.
*/
package annotation

import (
	"errors"
	"fmt"
	"sort"
)

const (
	ContainerKey = "container"
	FilterKey    = "filter"
	VersionKey   = "version"

	pjaxTypeName = "Pjax"
)

var (
	// ErrDisallowedKey is returned when a protected key is set through a merge.
	ErrDisallowedKey = errors.New("key is not allowed")

	// ErrUnknownKey is returned when a merged key has no matching field.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInvalidValue is returned when a merged value has the wrong type.
	ErrInvalidValue = errors.New("invalid value")
)

// ConfigError reports an invalid key in an annotation merge.
type ConfigError struct {
	Key  string
	Type string
	Err  error
}

func (e *ConfigError) Error() string {
	switch e.Err {
	case ErrDisallowedKey:
		return fmt.Sprintf("key %q is not allowed for annotation @%s", e.Key, e.Type)
	case ErrUnknownKey:
		return fmt.Sprintf("unknown key %q for annotation @%s", e.Key, e.Type)
	default:
		return fmt.Sprintf("key %q for annotation @%s: %v", e.Key, e.Type, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Pjax is the PJAX configuration of a controller or of an action. Every field
// is optional, nil means not set.
type Pjax struct {
	Container *string
	Filter    *bool
	Version   *string
}

// disallowed keys can't be set by a merge.
var disallowedKeys = map[string]struct{}{
	ContainerKey: {},
}

// New creates a Pjax annotation from the declared values.
func New(values map[string]interface{}) (*Pjax, error) {
	p := &Pjax{}
	if err := p.Merge(values, true); err != nil {
		return nil, err
	}

	return p, nil
}

// SetContainer sets the container selector. It is the only way to set the
// container.
func (p *Pjax) SetContainer(c string) { p.Container = &c }

func (p *Pjax) ContainerValue() (string, bool) {
	if p.Container == nil {
		return "", false
	}

	return *p.Container, true
}

func (p *Pjax) FilterValue() (bool, bool) {
	if p.Filter == nil {
		return false, false
	}

	return *p.Filter, true
}

func (p *Pjax) VersionValue() (string, bool) {
	if p.Version == nil {
		return "", false
	}

	return *p.Version, true
}

// ToMap returns the set fields, except the container.
func (p *Pjax) ToMap() map[string]interface{} {
	m := make(map[string]interface{})
	if p.Filter != nil {
		m[FilterKey] = *p.Filter
	}

	if p.Version != nil {
		m[VersionKey] = *p.Version
	}

	return m
}

// Clone returns a deep copy of the annotation.
func (p *Pjax) Clone() *Pjax {
	c := &Pjax{}
	if p.Container != nil {
		v := *p.Container
		c.Container = &v
	}

	if p.Filter != nil {
		v := *p.Filter
		c.Filter = &v
	}

	if p.Version != nil {
		v := *p.Version
		c.Version = &v
	}

	return c
}

// MergeAnnotation merges the fields of src, except its container.
func (p *Pjax) MergeAnnotation(src *Pjax, overwrite bool) error {
	if src == nil {
		return nil
	}

	return p.Merge(src.ToMap(), overwrite)
}

// Merge sets the fields from values. When overwrite is false, fields that are
// already set are left unchanged. Protected or unknown keys fail the merge,
// and in that case no field is changed.
func (p *Pjax) Merge(values map[string]interface{}, overwrite bool) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	next := p.Clone()
	for _, k := range keys {
		if err := next.set(k, values[k], overwrite); err != nil {
			return err
		}
	}

	*p = *next
	return nil
}

func (p *Pjax) set(key string, value interface{}, overwrite bool) error {
	if _, ok := disallowedKeys[key]; ok {
		return &ConfigError{Key: key, Type: pjaxTypeName, Err: ErrDisallowedKey}
	}

	switch key {
	case FilterKey:
		if !overwrite && p.Filter != nil {
			return nil
		}

		// nil clears the field, so merging an unset default stays a noop
		if value == nil {
			p.Filter = nil
			return nil
		}

		b, ok := value.(bool)
		if !ok {
			return &ConfigError{Key: key, Type: pjaxTypeName, Err: fmt.Errorf("%w: %v is not a bool", ErrInvalidValue, value)}
		}

		p.Filter = &b
	case VersionKey:
		if !overwrite && p.Version != nil {
			return nil
		}

		if value == nil {
			p.Version = nil
			return nil
		}

		s, err := versionString(value)
		if err != nil {
			return &ConfigError{Key: key, Type: pjaxTypeName, Err: err}
		}

		p.Version = &s
	default:
		return &ConfigError{Key: key, Type: pjaxTypeName, Err: ErrUnknownKey}
	}

	return nil
}

// versions in YAML documents are often written as numbers
func versionString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return fmt.Sprint(v), nil
	case int64:
		return fmt.Sprint(v), nil
	case float64:
		return fmt.Sprint(v), nil
	}

	return "", fmt.Errorf("%w: %v is not a string", ErrInvalidValue, value)
}
