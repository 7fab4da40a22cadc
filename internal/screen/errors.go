package screen

import "fmt"

// InvalidSizeError is returned when constructing Planes with a size family
// other than 24x80 or 27x132.
type InvalidSizeError struct {
	Rows, Cols int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("screen: unsupported size %dx%d", e.Rows, e.Cols)
}
