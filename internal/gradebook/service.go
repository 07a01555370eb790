package gradebook

import (
	"context"
	"sort"

	"gradebook-engine/internal/db"
	"gradebook-engine/internal/grading"
	"gradebook-engine/internal/model"
	"gradebook-engine/pkg/errors"
)

// NoVisibleColumnsMessage is returned in a student view when the teacher
// has not chosen any columns to show.
const NoVisibleColumnsMessage = "Your teacher has not made any grade columns visible yet."

// Service answers grade queries from stored spreadsheets. It never writes.
type Service struct {
	store db.Store
	calc  *grading.Calculator
	codec grading.SchemeCodec
}

func NewService(store db.Store, calc *grading.Calculator, codec grading.SchemeCodec) *Service {
	if calc == nil {
		calc = grading.NewCalculator(nil)
	}
	if codec == nil {
		codec = grading.JSONSchemeCodec{}
	}
	return &Service{store: store, calc: calc, codec: codec}
}

func (s *Service) Calculator() *grading.Calculator {
	return s.calc
}

// ClassData is everything needed to grade a class.
type ClassData struct {
	Class   *model.Class
	Scheme  model.GradingScheme
	Sheet   *model.ClassSpreadsheet
	Roster  []model.User
	Records map[string]*model.GradeRecord
}

func (d *ClassData) percentage(calc *grading.Calculator, studentNumber string) (float64, bool) {
	rec, ok := d.Records[studentNumber]
	if !ok {
		return 0, false
	}
	return calc.Calculate(d.Scheme, rec.Grades, d.Sheet.MaxValues), true
}

// LoadClass reads a class with its scheme, spreadsheet, records and roster
// from one consistent snapshot.
func (s *Service) LoadClass(ctx context.Context, classID int64) (*ClassData, error) {
	var data *ClassData
	err := s.store.View(ctx, func(ctx context.Context, repo db.Repository) error {
		var err error
		data, err = s.loadClass(ctx, repo, classID)
		return err
	})
	return data, err
}

func (s *Service) loadClass(ctx context.Context, repo db.Repository, classID int64) (*ClassData, error) {
	class, err := repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	scheme, err := s.codec.Decode(class.GradingScheme)
	if err != nil {
		return nil, err
	}
	sheet, err := repo.GetSpreadsheetByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	records, err := repo.ListGradeRecords(ctx, sheet.ID)
	if err != nil {
		return nil, err
	}
	roster, err := repo.ListRoster(ctx, classID)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string]*model.GradeRecord, len(records))
	for i := range records {
		byNumber[records[i].StudentNumber] = &records[i]
	}
	sheet.Records = records
	return &ClassData{Class: class, Scheme: scheme, Sheet: sheet, Roster: roster, Records: byNumber}, nil
}

// ComputeStudentGrade returns the student's weighted percentage in the class.
func (s *Service) ComputeStudentGrade(ctx context.Context, studentID, classID int64) (float64, error) {
	sr, err := s.loadStudent(ctx, studentID, classID)
	if err != nil {
		return 0, err
	}
	return s.calc.Calculate(sr.scheme, sr.record.Grades, sr.sheet.MaxValues), nil
}

// ComputeClassGrades returns every recorded student's percentage keyed by
// student number.
func (s *Service) ComputeClassGrades(ctx context.Context, classID int64) (map[string]float64, error) {
	data, err := s.LoadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	grades := make(map[string]float64, len(data.Records))
	for number, rec := range data.Records {
		grades[number] = s.calc.Calculate(data.Scheme, rec.Grades, data.Sheet.MaxValues)
	}
	return grades, nil
}

// ClassRosterTable lists every roster student sorted by name then number.
// A student without a grade record scores 0.
func (s *Service) ClassRosterTable(ctx context.Context, classID int64) ([]model.RosterRow, error) {
	data, err := s.LoadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	rows := make([]model.RosterRow, 0, len(data.Roster))
	for _, student := range data.Roster {
		pct, _ := data.percentage(s.calc, student.StudentNumber)
		rows = append(rows, model.RosterRow{
			StudentID:     student.ID,
			StudentName:   student.Name,
			StudentNumber: student.StudentNumber,
			LetterGrade:   grading.LetterGrade(pct),
			Percentage:    pct,
			Status:        grading.Standing(pct),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].StudentNumber < rows[j].StudentNumber
	})
	return rows, nil
}

// StudentView is what a student sees of their own record: only the
// columns the teacher made visible, plus the computed grade.
func (s *Service) StudentView(ctx context.Context, studentID, classID int64) (*model.StudentView, error) {
	sr, err := s.loadStudent(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	rec, sheet := sr.record, sr.sheet

	pct := s.calc.Calculate(sr.scheme, rec.Grades, sheet.MaxValues)
	view := &model.StudentView{
		StudentNumber: rec.StudentNumber,
		ClassID:       classID,
		Columns:       []string{},
		Grades:        map[string]string{},
		Percentage:    pct,
		LetterGrade:   grading.LetterGrade(pct),
		Status:        grading.Standing(pct),
		Breakdown:     s.calc.Breakdown(sr.scheme, rec.Grades, sheet.MaxValues),
	}

	if len(sheet.VisibleColumns) == 0 {
		view.Message = NoVisibleColumnsMessage
		return view, nil
	}
	for _, c := range sheet.VisibleColumns {
		view.Columns = append(view.Columns, c)
		view.Grades[c] = rec.Grades[c]
	}
	return view, nil
}

// studentGrades is what grading one student needs.
type studentGrades struct {
	scheme model.GradingScheme
	sheet  *model.ClassSpreadsheet
	record *model.GradeRecord
}

// loadStudent loads the class scheme, its spreadsheet and the student's
// record without reading the rest of the class.
func (s *Service) loadStudent(ctx context.Context, studentID, classID int64) (*studentGrades, error) {
	var sr studentGrades
	err := s.store.View(ctx, func(ctx context.Context, repo db.Repository) error {
		student, err := repo.GetUser(ctx, studentID)
		if errors.Is(err, errors.ErrNotFound) || (err == nil && !student.IsStudent()) {
			return errors.ErrStudentNotFound
		}
		if err != nil {
			return err
		}
		class, err := repo.GetClass(ctx, classID)
		if err != nil {
			return err
		}
		if sr.scheme, err = s.codec.Decode(class.GradingScheme); err != nil {
			return err
		}
		if sr.sheet, err = repo.GetSpreadsheetByClass(ctx, classID); err != nil {
			return err
		}
		sr.record, err = repo.GetGradeRecord(ctx, sr.sheet.ID, student.StudentNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sr, nil
}
