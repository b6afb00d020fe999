package routing

import "fmt"

type invalidDefinitionError string

func (e invalidDefinitionError) Error() string { return string(e) }
func (e invalidDefinitionError) Code() string  { return string(e) }

var (
	errUnknownFilter       = invalidDefinitionError("unknown_filter")
	errInvalidFilterParams = invalidDefinitionError("invalid_filter_params")
	errInvalidBackend      = invalidDefinitionError("invalid_backend")
	errInvalidPath         = invalidDefinitionError("invalid_path")
	errDuplicateID         = invalidDefinitionError("duplicate_id")
)

func wrapInvalidDefinition(routeID string, reason invalidDefinitionError, err error) error {
	if err == nil {
		return fmt.Errorf("route %s: %w", routeID, reason)
	}

	return fmt.Errorf("route %s: %w: %w", routeID, reason, err)
}
