package workbook

import (
	"errors"
	"fmt"
)

// ErrParse is returned when the upload is not a readable xlsx workbook.
var ErrParse = errors.New("workbook: cannot read file")

// SchemaError names a required sheet or column that the workbook lacks.
// Column is empty when the whole sheet is missing.
type SchemaError struct {
	Sheet  string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("workbook: missing sheet %q", e.Sheet)
	}
	return fmt.Sprintf("workbook: sheet %q is missing column %q", e.Sheet, e.Column)
}
