package grading

import (
	"sort"

	"gradebook-engine/internal/category"
	"gradebook-engine/internal/model"
)

// Calculator scores a student's raw grade mapping against a grading scheme.
type Calculator struct {
	resolver *category.Resolver
}

func NewCalculator(resolver *category.Resolver) *Calculator {
	if resolver == nil {
		resolver = category.NewResolver()
	}
	return &Calculator{resolver: resolver}
}

func (c *Calculator) Resolver() *category.Resolver {
	return c.resolver
}

// CategoryScore returns the 0-100 score of the scheme item called name, or
// Missing when no column for it holds a numeric value.
func (c *Calculator) CategoryScore(name string, grades map[string]string, maxValues model.AssessmentColumnSpec) float64 {
	columns := c.resolver.Columns(name, sortedHeaders(grades))

	if c.resolver.KindOf(name) == category.MultiValued {
		var (
			sum   float64
			count int
		)
		for _, h := range columns {
			max, registered := maxValues.Max(h)
			if pct, ok := Normalize(grades[h], max, registered); ok {
				sum += pct
				count++
			}
		}
		if count == 0 {
			return Missing
		}
		return sum / float64(count)
	}

	for _, h := range columns {
		max, registered := maxValues.Max(h)
		if pct, ok := Normalize(grades[h], max, registered); ok {
			return pct
		}
	}
	return Missing
}

// Calculate applies the scheme. A missing category adds nothing to the
// weighted total but its weight still counts toward the applied weight.
func (c *Calculator) Calculate(scheme model.GradingScheme, grades map[string]string, maxValues model.AssessmentColumnSpec) float64 {
	var totalGrade float64
	totalAppliedWeight := scheme.TotalWeight()
	for _, item := range scheme {
		score := c.CategoryScore(item.Name, grades, maxValues)
		if score >= 0 {
			totalGrade += score * (item.Weight / 100)
		}
	}
	if totalAppliedWeight <= 0 {
		return 0
	}
	return totalGrade / (totalAppliedWeight / 100)
}

// Breakdown returns the per-item scores used by Calculate.
func (c *Calculator) Breakdown(scheme model.GradingScheme, grades map[string]string, maxValues model.AssessmentColumnSpec) []model.CategoryScore {
	out := make([]model.CategoryScore, 0, len(scheme))
	for _, item := range scheme {
		score := c.CategoryScore(item.Name, grades, maxValues)
		out = append(out, model.CategoryScore{
			Name:    item.Name,
			Weight:  item.Weight,
			Score:   score,
			Missing: score < 0,
		})
	}
	return out
}

func sortedHeaders(grades map[string]string) []string {
	headers := make([]string, 0, len(grades))
	for h := range grades {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}
