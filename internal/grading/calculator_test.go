package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradebook-engine/internal/model"
	"gradebook-engine/pkg/errors"
)

const tolerance = 1e-9

var examScheme = model.GradingScheme{
	{Name: "Quizzes", Weight: 20},
	{Name: "Midterm Exam", Weight: 30},
	{Name: "Final Exam", Weight: 50},
}

var examMax = model.AssessmentColumnSpec{"Q1": 10, "Q2": 10, "ME": 100, "FE": 100}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		max        float64
		registered bool
		want       float64
		ok         bool
	}{
		{name: "registered max", raw: "8", max: 10, registered: true, want: 80, ok: true},
		{name: "unregistered defaults to 100", raw: "73.5", max: 0, registered: false, want: 73.5, ok: true},
		{name: "whitespace", raw: " 45 ", max: 50, registered: true, want: 90, ok: true},
		{name: "non numeric", raw: "absent", max: 10, registered: true},
		{name: "empty", raw: "", max: 10, registered: true},
		{name: "zero max", raw: "5", max: 0, registered: true},
		{name: "over max is kept", raw: "12", max: 10, registered: true, want: 120, ok: true},
		{name: "nan text", raw: "NaN", max: 10, registered: true},
		{name: "inf text", raw: "inf", max: 10, registered: true},
		{name: "infinity text", raw: "-Infinity", max: 10, registered: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, tt.max, tt.registered)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, tolerance)
		})
	}
}

func TestCalculateScenario(t *testing.T) {
	c := NewCalculator(nil)
	grades := map[string]string{"Q1": "8", "Q2": "9", "ME": "85", "FE": "90"}

	assert.InDelta(t, 85, c.CategoryScore("Quizzes", grades, examMax), tolerance)
	assert.InDelta(t, 85, c.CategoryScore("Midterm Exam", grades, examMax), tolerance)
	assert.InDelta(t, 90, c.CategoryScore("Final Exam", grades, examMax), tolerance)
	assert.InDelta(t, 87.5, c.Calculate(examScheme, grades, examMax), tolerance)
}

func TestCalculateIgnoresNonFiniteCells(t *testing.T) {
	c := NewCalculator(nil)
	grades := map[string]string{"Q1": "8", "Q2": "9", "ME": "NaN", "FE": "Infinity"}

	assert.InDelta(t, 17, c.Calculate(examScheme, grades, examMax), tolerance)
	for _, s := range c.Breakdown(examScheme, grades, examMax) {
		if s.Name != "Quizzes" {
			assert.True(t, s.Missing, s.Name)
		}
	}
}

func TestCalculateMissingCategoryStillCountsWeight(t *testing.T) {
	c := NewCalculator(nil)
	grades := map[string]string{"Q1": "8", "Q2": "9", "FE": "90"}

	assert.Equal(t, Missing, c.CategoryScore("Midterm Exam", grades, examMax))
	assert.InDelta(t, 62, c.Calculate(examScheme, grades, examMax), tolerance)
}

func TestCalculateSingleMissingCategoryIsZero(t *testing.T) {
	c := NewCalculator(nil)
	scheme := model.GradingScheme{{Name: "Final Exam", Weight: 50}}

	assert.Equal(t, 0.0, c.Calculate(scheme, map[string]string{"Q1": "10"}, nil))
}

func TestCalculateAllAtMaxIsHundred(t *testing.T) {
	c := NewCalculator(nil)
	scheme := model.GradingScheme{
		{Name: "Quizzes", Weight: 15},
		{Name: "Labs", Weight: 10},
		{Name: "Participation", Weight: 5},
		{Name: "Prelim Exam", Weight: 20},
		{Name: "Midterm Exam", Weight: 20},
		{Name: "Final Exam", Weight: 30},
	}
	maxValues := model.AssessmentColumnSpec{"Q1": 10, "Q2": 25, "Lab 1": 50, "CP": 20, "PE": 60, "ME": 80, "FE": 100}
	grades := map[string]string{"Q1": "10", "Q2": "25", "Lab 1": "50", "CP": "20", "PE": "60", "ME": "80", "FE": "100"}

	assert.InDelta(t, 100, c.Calculate(scheme, grades, maxValues), tolerance)
}

func TestCalculateEmptyScheme(t *testing.T) {
	c := NewCalculator(nil)
	assert.Equal(t, 0.0, c.Calculate(nil, map[string]string{"Q1": "10"}, nil))
	assert.Equal(t, 0.0, c.Calculate(model.GradingScheme{{Name: "Quizzes", Weight: 0}}, map[string]string{"Q1": "10"}, nil))
}

func TestCategoryScoreSkipsNonNumericColumns(t *testing.T) {
	c := NewCalculator(nil)

	// single-valued: falls through to the next candidate
	grades := map[string]string{"Final": "excused", "FE": "45"}
	maxValues := model.AssessmentColumnSpec{"FE": 50}
	assert.InDelta(t, 90, c.CategoryScore("Final Exam", grades, maxValues), tolerance)

	// multi-valued: averages only numeric cells
	grades = map[string]string{"Q1": "5", "Q2": "", "Q3": "inc"}
	maxValues = model.AssessmentColumnSpec{"Q1": 10, "Q2": 10, "Q3": 10}
	assert.InDelta(t, 50, c.CategoryScore("Quizzes", grades, maxValues), tolerance)

	grades = map[string]string{"Q1": "", "Q2": "n/a"}
	assert.Equal(t, Missing, c.CategoryScore("Quizzes", grades, maxValues))
}

func TestCategoryScoreCustomName(t *testing.T) {
	c := NewCalculator(nil)
	grades := map[string]string{"Bonus Points": "4", "Q1": "10"}
	maxValues := model.AssessmentColumnSpec{"Bonus Points": 5}

	assert.InDelta(t, 80, c.CategoryScore("Bonus", grades, maxValues), tolerance)
}

func TestBreakdown(t *testing.T) {
	c := NewCalculator(nil)
	grades := map[string]string{"Q1": "8", "Q2": "9", "FE": "90"}

	got := c.Breakdown(examScheme, grades, examMax)
	require.Len(t, got, 3)
	assert.Equal(t, "Quizzes", got[0].Name)
	assert.InDelta(t, 85, got[0].Score, tolerance)
	assert.True(t, got[1].Missing)
	assert.False(t, got[2].Missing)
}

func TestLetterAndStanding(t *testing.T) {
	tests := []struct {
		pct      float64
		letter   string
		standing string
	}{
		{pct: 100, letter: "A", standing: "Good Standing"},
		{pct: 90, letter: "A", standing: "Good Standing"},
		{pct: 89.99, letter: "B", standing: "Good Standing"},
		{pct: 80, letter: "B", standing: "Good Standing"},
		{pct: 79.5, letter: "C", standing: "Passing"},
		{pct: 70, letter: "C", standing: "Passing"},
		{pct: 65, letter: "D", standing: "At Risk"},
		{pct: 59.9, letter: "F", standing: "Failing"},
		{pct: 0, letter: "F", standing: "Failing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.letter, LetterGrade(tt.pct), "pct %v", tt.pct)
		assert.Equal(t, tt.standing, Standing(tt.pct), "pct %v", tt.pct)
	}
}

func TestJSONSchemeCodec(t *testing.T) {
	var codec SchemeCodec = JSONSchemeCodec{}

	scheme, err := codec.Decode(`[{"name":"Quizzes","weight":20},{"name":"Final Exam","weight":80}]`)
	require.NoError(t, err)
	assert.Equal(t, model.GradingScheme{{Name: "Quizzes", Weight: 20}, {Name: "Final Exam", Weight: 80}}, scheme)

	raw, err := codec.Encode(scheme)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Quizzes","weight":20},{"name":"Final Exam","weight":80}]`, raw)

	empty, err := codec.Decode("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = codec.Decode(`{"name": "Quizzes"`)
	assert.True(t, errors.Is(err, errors.ErrInvalidGradingScheme))
}

func TestValidateScheme(t *testing.T) {
	assert.NoError(t, ValidateScheme(examScheme))

	err := ValidateScheme(model.GradingScheme{{Name: " ", Weight: 10}})
	assert.True(t, errors.Is(err, errors.ErrSchemaValidation))

	err = ValidateScheme(model.GradingScheme{{Name: "Quizzes", Weight: -5}})
	var ve errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "scheme[0].weight", ve.Field)
}
