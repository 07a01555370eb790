package model

import "time"

type Class struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TeacherID     int64     `json:"teacher_id"`
	GradingScheme string    `json:"grading_scheme"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClassSpreadsheet is the aggregate root for a class's uploaded grade data.
// Version is bumped on every write and checked to detect concurrent updates.
type ClassSpreadsheet struct {
	ID             int64                `json:"id"`
	ClassID        int64                `json:"class_id"`
	TeacherID      int64                `json:"teacher_id"`
	FileName       string               `json:"file_name"`
	MaxValues      AssessmentColumnSpec `json:"assessment_max_values"`
	VisibleColumns []string             `json:"student_visible_columns"`
	Version        int64                `json:"version"`
	Records        []GradeRecord        `json:"records,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (s ClassSpreadsheet) Clone() ClassSpreadsheet {
	out := s
	out.MaxValues = s.MaxValues.Clone()
	if s.VisibleColumns != nil {
		out.VisibleColumns = append([]string(nil), s.VisibleColumns...)
	}
	if s.Records != nil {
		out.Records = make([]GradeRecord, len(s.Records))
		for i, r := range s.Records {
			out.Records[i] = r.Clone()
		}
	}
	return out
}
