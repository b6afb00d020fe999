package filters

import "fmt"

// Registry used to lookup Spec objects while initializing routes.
type Registry map[string]Spec

// Register a filter specification.
func (r Registry) Register(s Spec) {
	r[s.Name()] = s
}

// CreateFilter creates a filter instance with the spec registered under name.
func (r Registry) CreateFilter(name string, args []interface{}) (Filter, error) {
	s, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("filter not found: %s", name)
	}

	f, err := s.CreateFilter(args)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter %s: %w", name, err)
	}

	return f, nil
}
