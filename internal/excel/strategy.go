package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gradebook-engine/pkg/errors"
)

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) (*Sheet, error)
}

// StrategyFor picks a parser from the upload's file extension.
func StrategyFor(fileName string) (ParsingStrategy, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return NewParser(), nil
	case ".csv":
		return NewCSVParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, fileName)
	}
}

// Reader parses and validates uploads of any supported format.
type Reader struct {
	validator *Validator
}

func NewReader() *Reader {
	return &Reader{validator: NewValidator()}
}

// Read parses data according to fileName's extension and validates the
// resulting header row.
func (r *Reader) Read(ctx context.Context, fileName string, data []byte) (*Sheet, error) {
	strategy, err := StrategyFor(fileName)
	if err != nil {
		return nil, err
	}
	sheet, err := strategy.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := r.validator.Validate(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}
