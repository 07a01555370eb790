package model

// SchemeItem is one weighted category of a grading scheme.
type SchemeItem struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// GradingScheme is ordered. Weights need not sum to 100.
type GradingScheme []SchemeItem

func (s GradingScheme) TotalWeight() float64 {
	var total float64
	for _, item := range s {
		total += item.Weight
	}
	return total
}
