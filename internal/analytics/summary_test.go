package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gradebook-engine/internal/db"
	"gradebook-engine/internal/db/memdb"
	"gradebook-engine/internal/gradebook"
	"gradebook-engine/internal/grading"
	"gradebook-engine/internal/model"
	"gradebook-engine/internal/reconcile"
	"gradebook-engine/pkg/errors"
)

const tolerance = 1e-9

func TestSummarize(t *testing.T) {
	s := Summarize(map[string]float64{"a": 60, "b": 70, "c": 80, "d": 90})

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 75, s.Mean, tolerance)
	assert.InDelta(t, 75, s.Median, tolerance)
	assert.InDelta(t, 65, s.Q1, tolerance)
	assert.InDelta(t, 85, s.Q3, tolerance)
	assert.InDelta(t, 60, s.Min, tolerance)
	assert.InDelta(t, 90, s.Max, tolerance)
	assert.InDelta(t, 11.180339887498949, s.StdDev, 1e-9)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1, "F": 0}, s.Letters)
	assert.Equal(t, map[string]int{"Good Standing": 2, "Passing": 1, "At Risk": 1, "Failing": 0}, s.Standings)
}

func TestSummarizeEdgeCases(t *testing.T) {
	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.Mean)
	assert.Equal(t, 0, empty.Letters["A"])

	one := Summarize(map[string]float64{"a": 42})
	assert.Equal(t, 1, one.Count)
	assert.InDelta(t, 42, one.Q1, tolerance)
	assert.InDelta(t, 42, one.Q3, tolerance)
	assert.InDelta(t, 0, one.StdDev, tolerance)
	assert.Equal(t, 1, one.Standings["Failing"])
}

func TestCategoryAverages(t *testing.T) {
	scheme := model.GradingScheme{{Name: "Quizzes", Weight: 40}, {Name: "Final Exam", Weight: 60}}
	maxValues := model.AssessmentColumnSpec{"Q1": 10, "FE": 50}
	records := []model.GradeRecord{
		{StudentNumber: "1", Grades: map[string]string{"Q1": "10", "FE": "40"}},
		{StudentNumber: "2", Grades: map[string]string{"Q1": "5", "FE": ""}},
		{StudentNumber: "3", Grades: map[string]string{"Q1": "abs"}},
	}

	got := CategoryAverages(scheme, records, maxValues, grading.NewCalculator(nil))
	require.Len(t, got, 2)
	assert.Equal(t, "Quizzes", got[0].Name)
	assert.InDelta(t, 75, got[0].Average, tolerance)
	assert.Equal(t, 2, got[0].Scored)
	assert.Equal(t, 1, got[0].Missing)

	assert.Equal(t, "Final Exam", got[1].Name)
	assert.InDelta(t, 80, got[1].Average, tolerance)
	assert.Equal(t, 1, got[1].Scored)
	assert.Equal(t, 2, got[1].Missing)
}

func TestClassAnalytics(t *testing.T) {
	ctx := context.Background()
	store := memdb.Open()
	engine := reconcile.NewEngine(store, nil, reconcile.WithHashCost(bcrypt.MinCost))
	svc := NewService(gradebook.NewService(store, nil, nil))

	var teacher model.User
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		teacher = model.User{Role: model.RoleTeacher, Name: "T", Email: "t@school.edu"}
		return repo.CreateUser(ctx, &teacher)
	}))

	csv := "Student Number,FE\n,100\n1,90\n2,80\n3,70\n4,50\n"
	_, class, err := engine.IngestNewSpreadsheet(ctx, reconcile.Upload{FileName: "Bio.csv", Data: []byte(csv)}, teacher.ID)
	require.NoError(t, err)
	_, err = engine.UpdateGradingScheme(ctx, class.ID, teacher.ID, model.GradingScheme{{Name: "Final Exam", Weight: 100}})
	require.NoError(t, err)

	report, err := svc.ClassAnalytics(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bio", report.ClassName)
	assert.Equal(t, 4, report.Summary.Count)
	assert.InDelta(t, 72.5, report.Summary.Mean, tolerance)
	assert.Equal(t, 1, report.Summary.Letters["F"])
	require.Len(t, report.Categories, 1)
	assert.InDelta(t, 72.5, report.Categories[0].Average, tolerance)

	_, err = svc.ClassAnalytics(ctx, 404)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
