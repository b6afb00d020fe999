package filters

import "fmt"

func StringArg(x interface{}) (string, error) {
	if s, ok := x.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%v is not a string", x)
}

func BoolArg(x interface{}) (bool, error) {
	if b, ok := x.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%v is not a bool", x)
}

// PairArgs converts the arguments in the form of key, value, key, value... into
// a map. Keys need to be strings, values are used as is.
func PairArgs(args []interface{}) (map[string]interface{}, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("odd number of key-value arguments: %d", len(args))
	}

	m := make(map[string]interface{}, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		k, err := StringArg(args[i])
		if err != nil {
			return nil, err
		}

		if _, exists := m[k]; exists {
			return nil, fmt.Errorf("duplicate key: %s", k)
		}

		m[k] = args[i+1]
	}

	return m, nil
}

// StringPairArgs is like PairArgs, but requires the values to be strings,
// too.
func StringPairArgs(args []interface{}) (map[string]string, error) {
	m, err := PairArgs(args)
	if err != nil {
		return nil, err
	}

	sm := make(map[string]string, len(m))
	for k, v := range m {
		s, err := StringArg(v)
		if err != nil {
			return nil, err
		}

		sm[k] = s
	}

	return sm, nil
}
