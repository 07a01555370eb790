package model

import "time"

// ImportMode selects how an upload is reconciled with stored data.
type ImportMode string

const (
	ImportModeCreate  ImportMode = "create"
	ImportModeMerge   ImportMode = "merge"
	ImportModeReplace ImportMode = "replace"
)

func (m ImportMode) Valid() bool {
	switch m {
	case ImportModeCreate, ImportModeMerge, ImportModeReplace:
		return true
	}
	return false
}

// ImportJob asks the import worker to fetch a linked sheet from object
// storage and reconcile it.
type ImportJob struct {
	JobID     string     `json:"job_id"`
	ClassID   int64      `json:"class_id,omitempty"`
	TeacherID int64      `json:"teacher_id"`
	ObjectKey string     `json:"object_key"`
	FileName  string     `json:"file_name"`
	Mode      ImportMode `json:"mode"`
	Attempt   int        `json:"attempt"`
	QueuedAt  time.Time  `json:"queued_at"`
}

type ImportRequest struct {
	TeacherID int64      `json:"teacher_id" binding:"required"`
	ObjectKey string     `json:"object_key" binding:"required"`
	FileName  string     `json:"file_name"`
	Mode      ImportMode `json:"mode"`
}

type VisibleColumnsRequest struct {
	Columns []string `json:"columns"`
}

type GradingSchemeRequest struct {
	TeacherID int64         `json:"teacher_id" binding:"required"`
	Scheme    GradingScheme `json:"scheme"`
}

type RosterRow struct {
	StudentID     int64   `json:"student_id"`
	StudentName   string  `json:"student_name"`
	StudentNumber string  `json:"student_number"`
	LetterGrade   string  `json:"letter_grade"`
	Percentage    float64 `json:"percentage"`
	Status        string  `json:"status"`
}

type CategoryScore struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Score   float64 `json:"score"`
	Missing bool    `json:"missing"`
}

type StudentView struct {
	StudentNumber string            `json:"student_number"`
	ClassID       int64             `json:"class_id"`
	Columns       []string          `json:"columns"`
	Grades        map[string]string `json:"grades"`
	Percentage    float64           `json:"percentage"`
	LetterGrade   string            `json:"letter_grade"`
	Status        string            `json:"status"`
	Breakdown     []CategoryScore   `json:"breakdown,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// FailedImport is the dead-letter payload of an import job that will not
// be retried.
type FailedImport struct {
	Job      ImportJob `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
