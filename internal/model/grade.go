package model

import (
	"strings"
	"time"
)

// RawRecord is one data row of an uploaded sheet: header -> cell text.
type RawRecord map[string]string

// AssessmentColumnSpec maps a raw header to the maximum score declared in
// the sheet's second row. Keys are case-sensitive as uploaded.
type AssessmentColumnSpec map[string]float64

// Merge adds new keys and overwrites existing ones with the values from other.
func (s AssessmentColumnSpec) Merge(other AssessmentColumnSpec) AssessmentColumnSpec {
	out := s.Clone()
	if out == nil {
		out = AssessmentColumnSpec{}
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (s AssessmentColumnSpec) Clone() AssessmentColumnSpec {
	if s == nil {
		return nil
	}
	out := make(AssessmentColumnSpec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Max returns the registered maximum for header.
func (s AssessmentColumnSpec) Max(header string) (float64, bool) {
	v, ok := s[header]
	return v, ok
}

type GradeRecord struct {
	ID            int64             `json:"id"`
	SpreadsheetID int64             `json:"spreadsheet_id"`
	StudentID     int64             `json:"student_id"`
	StudentNumber string            `json:"student_number"`
	Grades        map[string]string `json:"grades"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MergeGrades copies incoming values over the record's grades. Blank
// incoming values are skipped so they never erase recorded data.
func (r *GradeRecord) MergeGrades(incoming map[string]string) {
	if r.Grades == nil {
		r.Grades = make(map[string]string, len(incoming))
	}
	for header, value := range incoming {
		if strings.TrimSpace(value) == "" {
			continue
		}
		r.Grades[header] = value
	}
}

func (r GradeRecord) Clone() GradeRecord {
	out := r
	out.Grades = make(map[string]string, len(r.Grades))
	for k, v := range r.Grades {
		out.Grades[k] = v
	}
	return out
}
