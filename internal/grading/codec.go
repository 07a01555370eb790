package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gradebook-engine/internal/model"
	"gradebook-engine/pkg/errors"
)

// SchemeCodec converts grading schemes to and from their stored form.
type SchemeCodec interface {
	Decode(raw string) (model.GradingScheme, error)
	Encode(scheme model.GradingScheme) (string, error)
}

// JSONSchemeCodec stores schemes as [{"name": ..., "weight": ...}].
type JSONSchemeCodec struct{}

func (JSONSchemeCodec) Decode(raw string) (model.GradingScheme, error) {
	if strings.TrimSpace(raw) == "" {
		return model.GradingScheme{}, nil
	}
	var scheme model.GradingScheme
	if err := json.Unmarshal([]byte(raw), &scheme); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidGradingScheme, err)
	}
	return scheme, nil
}

func (JSONSchemeCodec) Encode(scheme model.GradingScheme) (string, error) {
	if scheme == nil {
		scheme = model.GradingScheme{}
	}
	data, err := json.Marshal(scheme)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidGradingScheme, err)
	}
	return string(data), nil
}

// ValidateScheme rejects schemes that cannot be scored.
func ValidateScheme(scheme model.GradingScheme) error {
	for i, item := range scheme {
		if strings.TrimSpace(item.Name) == "" {
			return errors.ValidationError{
				Field:   fmt.Sprintf("scheme[%d].name", i),
				Value:   item.Name,
				Message: "category name is required",
			}
		}
		if item.Weight < 0 || math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) {
			return errors.ValidationError{
				Field:   fmt.Sprintf("scheme[%d].weight", i),
				Value:   item.Weight,
				Message: "weight must be a non-negative number",
			}
		}
	}
	return nil
}
