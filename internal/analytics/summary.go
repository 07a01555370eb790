package analytics

import (
	"sort"

	"github.com/montanaflynn/stats"

	"gradebook-engine/internal/grading"
	"gradebook-engine/internal/model"
)

var (
	letters   = []string{"A", "B", "C", "D", "F"}
	standings = []string{"Good Standing", "Passing", "At Risk", "Failing"}
)

type Summary struct {
	Count     int            `json:"count"`
	Mean      float64        `json:"mean"`
	Median    float64        `json:"median"`
	Q1        float64        `json:"q1"`
	Q3        float64        `json:"q3"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	StdDev    float64        `json:"std_dev"`
	Letters   map[string]int `json:"letters"`
	Standings map[string]int `json:"standings"`
}

// CategoryAverage is the class mean of one scheme item over the students
// that have a score for it.
type CategoryAverage struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Average float64 `json:"average"`
	Scored  int     `json:"scored"`
	Missing int     `json:"missing"`
}

// Summarize describes the distribution of final percentages keyed by
// student number. Standard deviation is the population one.
func Summarize(grades map[string]float64) Summary {
	s := Summary{
		Letters:   make(map[string]int, len(letters)),
		Standings: make(map[string]int, len(standings)),
	}
	for _, l := range letters {
		s.Letters[l] = 0
	}
	for _, st := range standings {
		s.Standings[st] = 0
	}
	if len(grades) == 0 {
		return s
	}

	data := make(stats.Float64Data, 0, len(grades))
	for _, pct := range grades {
		data = append(data, pct)
		s.Letters[grading.LetterGrade(pct)]++
		s.Standings[grading.Standing(pct)]++
	}
	sort.Float64s(data)

	s.Count = data.Len()
	s.Mean, _ = data.Mean()
	s.Median, _ = data.Median()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.StdDev, _ = data.StandardDeviationPopulation()

	if s.Count == 1 {
		s.Q1, s.Q3 = data[0], data[0]
		return s
	}
	if q, err := stats.Quartile(data); err == nil {
		s.Q1, s.Q3 = q.Q1, q.Q3
	}
	return s
}

// CategoryAverages scores every record against each scheme item.
func CategoryAverages(scheme model.GradingScheme, records []model.GradeRecord, maxValues model.AssessmentColumnSpec, calc *grading.Calculator) []CategoryAverage {
	out := make([]CategoryAverage, 0, len(scheme))
	for _, item := range scheme {
		avg := CategoryAverage{Name: item.Name, Weight: item.Weight}
		var scores stats.Float64Data
		for _, rec := range records {
			score := calc.CategoryScore(item.Name, rec.Grades, maxValues)
			if score < 0 {
				avg.Missing++
				continue
			}
			scores = append(scores, score)
		}
		avg.Scored = len(scores)
		if avg.Scored > 0 {
			avg.Average, _ = stats.Mean(scores)
		}
		out = append(out, avg)
	}
	return out
}
