package excel

import (
	"context"

	"gradebook-engine/internal/category"
	"gradebook-engine/pkg/errors"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate requires a header row that names a student number column.
func (v *Validator) Validate(ctx context.Context, sheet *Sheet) error {
	if sheet == nil || len(sheet.Headers) == 0 {
		return errors.ErrSchemaValidation
	}

	if _, ok := category.StudentNumberColumn(sheet.Headers); !ok {
		return errors.ValidationError{
			Field:   "headers",
			Value:   sheet.Headers,
			Message: "a student number column is required",
		}
	}

	return nil
}
