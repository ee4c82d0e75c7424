package gribsource

import (
	"fmt"
)

// DataSourceError indicates the external grid-data tool failed or produced
// output that could not be parsed.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("grib data source: %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
