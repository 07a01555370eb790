package db

import (
	"context"

	"gradebook-engine/internal/model"
)

// Repository is the set of operations the engine runs inside a
// transaction. Implementations return errors from pkg/errors
// (ErrTeacherNotFound, ErrConflict, ...) so callers can match them.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetTeacher(ctx context.Context, id int64) (*model.User, error)
	GetStudentByNumber(ctx context.Context, studentNumber string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error

	CreateClass(ctx context.Context, class *model.Class) error
	GetClass(ctx context.Context, id int64) (*model.Class, error)
	UpdateGradingScheme(ctx context.Context, classID int64, scheme string) error

	ListRoster(ctx context.Context, classID int64) ([]model.User, error)
	AddRosterMembers(ctx context.Context, classID int64, studentIDs []int64) error
	ReplaceRoster(ctx context.Context, classID int64, studentIDs []int64) error

	CreateSpreadsheet(ctx context.Context, sheet *model.ClassSpreadsheet) error
	GetSpreadsheet(ctx context.Context, id int64) (*model.ClassSpreadsheet, error)
	GetSpreadsheetByClass(ctx context.Context, classID int64) (*model.ClassSpreadsheet, error)
	// UpdateSpreadsheet writes sheet if its stored version still equals
	// sheet.Version and bumps the version; otherwise it fails with ErrConflict.
	UpdateSpreadsheet(ctx context.Context, sheet *model.ClassSpreadsheet) error

	ListGradeRecords(ctx context.Context, spreadsheetID int64) ([]model.GradeRecord, error)
	GetGradeRecord(ctx context.Context, spreadsheetID int64, studentNumber string) (*model.GradeRecord, error)
	UpsertGradeRecord(ctx context.Context, record *model.GradeRecord) error
	DeleteGradeRecords(ctx context.Context, spreadsheetID int64) error
}

// TxFunc runs against a repository bound to one transaction.
type TxFunc func(ctx context.Context, repo Repository) error

// Store opens transactions. InTx commits when fn returns nil and rolls
// back otherwise; View runs fn in a read-only transaction.
type Store interface {
	InTx(ctx context.Context, fn TxFunc) error
	View(ctx context.Context, fn TxFunc) error
}
