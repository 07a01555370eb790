package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"gradebook-engine/internal/model"
	apperrors "gradebook-engine/pkg/errors"
)

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) InTx(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, nil, fn)
}

func (s *sqlStore) View(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *sqlStore) run(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &repository{q: tx, now: time.Now}); err != nil {
		return err
	}
	return tx.Commit()
}

type repository struct {
	q   executor
	now func() time.Time
}

const userColumns = `id, role, name, email, COALESCE(student_number, ''), password_hash, placeholder, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(&u.ID, &role, &u.Name, &u.Email, &u.StudentNumber, &u.PasswordHash,
		&u.Placeholder, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (r *repository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return u, err
}

func (r *repository) GetTeacher(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND role = ?`
	u, err := scanUser(r.q.QueryRowContext(ctx, query, id, model.RoleTeacher))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrTeacherNotFound
	}
	return u, err
}

func (r *repository) GetStudentByNumber(ctx context.Context, studentNumber string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE student_number = ? AND role = ?`
	u, err := scanUser(r.q.QueryRowContext(ctx, query, studentNumber, model.RoleStudent))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrStudentNotFound
	}
	return u, err
}

func (r *repository) CreateUser(ctx context.Context, user *model.User) error {
	now := r.now().UTC()
	var number interface{}
	if user.StudentNumber != "" {
		number = user.StudentNumber
	}
	query := `INSERT INTO users (role, name, email, student_number, password_hash, placeholder, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, query, user.Role, user.Name, user.Email, number,
		user.PasswordHash, user.Placeholder, now, now)
	if err != nil {
		return fmt.Errorf("insert user: %w", duplicate(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID, user.CreatedAt, user.UpdatedAt = id, now, now
	return nil
}

func (r *repository) CreateClass(ctx context.Context, class *model.Class) error {
	now := r.now().UTC()
	query := `INSERT INTO classes (name, teacher_id, grading_scheme, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, query, class.Name, class.TeacherID, class.GradingScheme, now, now)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	class.ID, class.CreatedAt, class.UpdatedAt = id, now, now
	return nil
}

func (r *repository) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	query := `SELECT id, name, teacher_id, grading_scheme, created_at, updated_at FROM classes WHERE id = ?`

	var c model.Class
	err := r.q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.TeacherID, &c.GradingScheme, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) UpdateGradingScheme(ctx context.Context, classID int64, scheme string) error {
	query := `UPDATE classes SET grading_scheme = ?, updated_at = ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, scheme, r.now().UTC(), classID)
	if err != nil {
		return err
	}
	return expectRow(res, apperrors.ErrClassNotFound)
}

func (r *repository) ListRoster(ctx context.Context, classID int64) ([]model.User, error) {
	query := `SELECT u.id, u.role, u.name, u.email, COALESCE(u.student_number, ''), u.password_hash, u.placeholder, u.created_at, u.updated_at
			  FROM users u JOIN class_students cs ON cs.student_id = u.id
			  WHERE cs.class_id = ? ORDER BY u.name, u.student_number`

	rows, err := r.q.QueryContext(ctx, query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *repository) AddRosterMembers(ctx context.Context, classID int64, studentIDs []int64) error {
	query := `INSERT IGNORE INTO class_students (class_id, student_id) VALUES (?, ?)`
	for _, id := range studentIDs {
		if _, err := r.q.ExecContext(ctx, query, classID, id); err != nil {
			return fmt.Errorf("add roster member %d: %w", id, err)
		}
	}
	return nil
}

func (r *repository) ReplaceRoster(ctx context.Context, classID int64, studentIDs []int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = ?`, classID); err != nil {
		return err
	}
	return r.AddRosterMembers(ctx, classID, studentIDs)
}

func (r *repository) CreateSpreadsheet(ctx context.Context, sheet *model.ClassSpreadsheet) error {
	maxValues, visible, err := encodeSpreadsheet(sheet)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	query := `INSERT INTO class_spreadsheets (class_id, teacher_id, file_name, max_values, visible_columns, version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, 1, ?, ?)`
	res, err := r.q.ExecContext(ctx, query, sheet.ClassID, sheet.TeacherID, sheet.FileName, maxValues, visible, now, now)
	if err != nil {
		return fmt.Errorf("insert class spreadsheet: %w", duplicate(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sheet.ID, sheet.Version, sheet.CreatedAt, sheet.UpdatedAt = id, 1, now, now
	return nil
}

const spreadsheetColumns = `id, class_id, teacher_id, file_name, max_values, visible_columns, version, created_at, updated_at`

func (r *repository) scanSpreadsheet(row *sql.Row) (*model.ClassSpreadsheet, error) {
	var (
		s         model.ClassSpreadsheet
		maxValues string
		visible   sql.NullString
	)
	err := row.Scan(&s.ID, &s.ClassID, &s.TeacherID, &s.FileName, &maxValues, &visible, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSpreadsheetNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(maxValues), &s.MaxValues); err != nil {
		return nil, fmt.Errorf("decode max values of spreadsheet %d: %w", s.ID, err)
	}
	if visible.Valid {
		if err := json.Unmarshal([]byte(visible.String), &s.VisibleColumns); err != nil {
			return nil, fmt.Errorf("decode visible columns of spreadsheet %d: %w", s.ID, err)
		}
	}
	return &s, nil
}

func (r *repository) GetSpreadsheet(ctx context.Context, id int64) (*model.ClassSpreadsheet, error) {
	query := `SELECT ` + spreadsheetColumns + ` FROM class_spreadsheets WHERE id = ?`
	return r.scanSpreadsheet(r.q.QueryRowContext(ctx, query, id))
}

func (r *repository) GetSpreadsheetByClass(ctx context.Context, classID int64) (*model.ClassSpreadsheet, error) {
	query := `SELECT ` + spreadsheetColumns + ` FROM class_spreadsheets WHERE class_id = ?`
	return r.scanSpreadsheet(r.q.QueryRowContext(ctx, query, classID))
}

func (r *repository) UpdateSpreadsheet(ctx context.Context, sheet *model.ClassSpreadsheet) error {
	maxValues, visible, err := encodeSpreadsheet(sheet)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	query := `UPDATE class_spreadsheets
			  SET file_name = ?, max_values = ?, visible_columns = ?, version = version + 1, updated_at = ?
			  WHERE id = ? AND version = ?`
	res, err := r.q.ExecContext(ctx, query, sheet.FileName, maxValues, visible, now, sheet.ID, sheet.Version)
	if err != nil {
		return err
	}
	if err := expectRow(res, apperrors.ErrConflict); err != nil {
		return apperrors.NewRetryableError(err, fmt.Sprintf("spreadsheet %d changed since version %d", sheet.ID, sheet.Version))
	}
	sheet.Version++
	sheet.UpdatedAt = now
	return nil
}

func encodeSpreadsheet(sheet *model.ClassSpreadsheet) (string, interface{}, error) {
	maxValues := sheet.MaxValues
	if maxValues == nil {
		maxValues = model.AssessmentColumnSpec{}
	}
	mv, err := json.Marshal(maxValues)
	if err != nil {
		return "", nil, err
	}
	var visible interface{}
	if sheet.VisibleColumns != nil {
		data, err := json.Marshal(sheet.VisibleColumns)
		if err != nil {
			return "", nil, err
		}
		visible = string(data)
	}
	return string(mv), visible, nil
}

const recordColumns = `id, spreadsheet_id, student_id, student_number, grades, created_at, updated_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (*model.GradeRecord, error) {
	var (
		rec    model.GradeRecord
		grades string
	)
	if err := row.Scan(&rec.ID, &rec.SpreadsheetID, &rec.StudentID, &rec.StudentNumber, &grades, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(grades), &rec.Grades); err != nil {
		return nil, fmt.Errorf("decode grades of record %d: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *repository) ListGradeRecords(ctx context.Context, spreadsheetID int64) ([]model.GradeRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM grade_records WHERE spreadsheet_id = ? ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.GradeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *repository) GetGradeRecord(ctx context.Context, spreadsheetID int64, studentNumber string) (*model.GradeRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM grade_records WHERE spreadsheet_id = ? AND student_number = ?`
	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, spreadsheetID, studentNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRecordNotFound
	}
	return rec, err
}

func (r *repository) UpsertGradeRecord(ctx context.Context, record *model.GradeRecord) error {
	grades := record.Grades
	if grades == nil {
		grades = map[string]string{}
	}
	data, err := json.Marshal(grades)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	query := `INSERT INTO grade_records (spreadsheet_id, student_id, student_number, grades, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), student_id = VALUES(student_id),
			  grades = VALUES(grades), updated_at = VALUES(updated_at)`
	res, err := r.q.ExecContext(ctx, query, record.SpreadsheetID, record.StudentID, record.StudentNumber, string(data), now, now)
	if err != nil {
		return fmt.Errorf("upsert grade record for %s: %w", record.StudentNumber, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if record.ID == 0 {
		record.CreatedAt = now
	}
	record.ID, record.UpdatedAt = id, now
	return nil
}

func (r *repository) DeleteGradeRecords(ctx context.Context, spreadsheetID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM grade_records WHERE spreadsheet_id = ?`, spreadsheetID)
	return err
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

const errDupEntry = 1062

// duplicate maps a MySQL unique-key violation onto ErrDuplicate.
func duplicate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry {
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, me.Message)
	}
	return err
}
