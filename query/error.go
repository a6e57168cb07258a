package query

import "fmt"

// IndexOutOfRangeError is returned when accessing a feature position the view doesn't have. Count is -1 when the
// index itself is invalid.
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Count < 0 {
		return fmt.Sprintf("Invalid index %d", e.Index)
	}
	return fmt.Sprintf("Index %d out of range, the view contains %d features", e.Index, e.Count)
}
