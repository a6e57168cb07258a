package filter

import (
	"fmt"
	"fsq/feature"
)

// TypeMismatchError is returned when a spatial predicate can never accept any feature of the given types, e.g. when
// nodes should contain something.
type TypeMismatchError struct {
	Predicate string
	Types     feature.TypeSet
	Reason    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Predicate '%s' cannot be applied to %s: %s", e.Predicate, e.Types.String(), e.Reason)
}
