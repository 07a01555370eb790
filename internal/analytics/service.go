package analytics

import (
	"context"

	"gradebook-engine/internal/gradebook"
)

type ClassAnalytics struct {
	ClassID    int64             `json:"class_id"`
	ClassName  string            `json:"class_name"`
	Summary    Summary           `json:"summary"`
	Categories []CategoryAverage `json:"categories"`
}

type Service struct {
	grades *gradebook.Service
}

func NewService(grades *gradebook.Service) *Service {
	return &Service{grades: grades}
}

func (s *Service) ClassAnalytics(ctx context.Context, classID int64) (*ClassAnalytics, error) {
	data, err := s.grades.LoadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	calc := s.grades.Calculator()

	percentages := make(map[string]float64, len(data.Records))
	for number, rec := range data.Records {
		percentages[number] = calc.Calculate(data.Scheme, rec.Grades, data.Sheet.MaxValues)
	}

	return &ClassAnalytics{
		ClassID:    data.Class.ID,
		ClassName:  data.Class.Name,
		Summary:    Summarize(percentages),
		Categories: CategoryAverages(data.Scheme, data.Sheet.Records, data.Sheet.MaxValues, calc),
	}, nil
}
