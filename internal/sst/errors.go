package sst

import (
	"errors"
	"fmt"
)

// ErrNoData means a well-formed request produced zero valid temperature
// samples across the entire composed range (e.g. the whole range is deep
// inland). Deliberately not cached so nearby retries hit the upstream.
var ErrNoData = errors.New("no ocean temperature data available for this location")

// ValidationError rejects a request before any cache lookup or upstream
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
