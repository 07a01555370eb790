package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gradebook-engine/internal/db"
	"gradebook-engine/internal/excel"
	"gradebook-engine/internal/grading"
	"gradebook-engine/internal/lock"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/model"
	"gradebook-engine/pkg/errors"
)

const DefaultPlaceholderDomain = "temp.edu"

// Engine turns uploaded gradesheets into stored spreadsheets, grade records
// and rosters. Every entry point parses before opening its transaction and
// persists all of its changes or none of them.
type Engine struct {
	store    db.Store
	locker   lock.Locker
	reader   *excel.Reader
	codec    grading.SchemeCodec
	domain   string
	hashCost int
	log      zerolog.Logger
}

type Option func(*Engine)

func WithSchemeCodec(codec grading.SchemeCodec) Option {
	return func(e *Engine) { e.codec = codec }
}

// WithPlaceholderDomain sets the email domain of auto-created students.
func WithPlaceholderDomain(domain string) Option {
	return func(e *Engine) {
		if domain != "" {
			e.domain = domain
		}
	}
}

// WithHashCost sets the bcrypt cost of placeholder credentials.
func WithHashCost(cost int) Option {
	return func(e *Engine) { e.hashCost = cost }
}

func NewEngine(store db.Store, locker lock.Locker, opts ...Option) *Engine {
	if locker == nil {
		locker = lock.NewMemoryLocker(0)
	}
	e := &Engine{
		store:    store,
		locker:   locker,
		reader:   excel.NewReader(),
		codec:    grading.JSONSchemeCodec{},
		domain:   DefaultPlaceholderDomain,
		hashCost: bcrypt.DefaultCost,
		log:      logger.Component("reconcile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IngestNewSpreadsheet creates a class named after the file, its
// spreadsheet and one record per student in the upload.
func (e *Engine) IngestNewSpreadsheet(ctx context.Context, upload Upload, teacherID int64) (*model.ClassSpreadsheet, *model.Class, error) {
	start := time.Now()
	b, err := readBatch(ctx, e.reader, upload)
	if err != nil {
		return nil, nil, err
	}
	emptyScheme, err := e.codec.Encode(nil)
	if err != nil {
		return nil, nil, err
	}

	var (
		sheet *model.ClassSpreadsheet
		class *model.Class
	)
	err = e.store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		if _, err := repo.GetTeacher(ctx, teacherID); err != nil {
			return err
		}

		class = &model.Class{
			Name:          className(upload.FileName),
			TeacherID:     teacherID,
			GradingScheme: emptyScheme,
		}
		if err := repo.CreateClass(ctx, class); err != nil {
			return fmt.Errorf("create class: %w", err)
		}

		sheet = &model.ClassSpreadsheet{
			ClassID:   class.ID,
			TeacherID: teacherID,
			FileName:  upload.FileName,
			MaxValues: b.maxValues.Clone(),
		}
		if err := repo.CreateSpreadsheet(ctx, sheet); err != nil {
			return fmt.Errorf("create spreadsheet: %w", err)
		}

		studentIDs, err := e.writeRecords(ctx, repo, sheet, b, nil)
		if err != nil {
			return err
		}
		if err := repo.AddRosterMembers(ctx, class.ID, studentIDs); err != nil {
			return err
		}
		return loadRecords(ctx, repo, sheet)
	})
	if err != nil {
		return nil, nil, err
	}

	e.logDone(model.ImportModeCreate, sheet, b, start)
	return sheet, class, nil
}

// MergeUpdate folds an upload into the class's spreadsheet. Non-blank
// incoming values overwrite stored ones, unseen students get new records,
// max values are merged and the roster grows to include every student in
// the upload.
func (e *Engine) MergeUpdate(ctx context.Context, classID int64, upload Upload, teacherID int64) (*model.ClassSpreadsheet, error) {
	return e.update(ctx, model.ImportModeMerge, classID, upload, teacherID)
}

// FullReplace discards the spreadsheet's records and rebuilds them from
// the upload. The roster becomes exactly the upload's students.
func (e *Engine) FullReplace(ctx context.Context, classID int64, upload Upload, teacherID int64) (*model.ClassSpreadsheet, error) {
	return e.update(ctx, model.ImportModeReplace, classID, upload, teacherID)
}

// Reconcile dispatches on mode. classID is ignored for ImportModeCreate.
func (e *Engine) Reconcile(ctx context.Context, mode model.ImportMode, classID int64, upload Upload, teacherID int64) (*model.ClassSpreadsheet, error) {
	switch mode {
	case model.ImportModeCreate:
		sheet, _, err := e.IngestNewSpreadsheet(ctx, upload, teacherID)
		return sheet, err
	case model.ImportModeMerge, model.ImportModeReplace:
		return e.update(ctx, mode, classID, upload, teacherID)
	default:
		return nil, errors.ValidationError{Field: "mode", Value: mode, Message: "must be create, merge or replace"}
	}
}

func (e *Engine) update(ctx context.Context, mode model.ImportMode, classID int64, upload Upload, teacherID int64) (*model.ClassSpreadsheet, error) {
	start := time.Now()
	b, err := readBatch(ctx, e.reader, upload)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, lock.ClassKey(classID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var sheet *model.ClassSpreadsheet
	err = e.store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		if _, err := ownedClass(ctx, repo, classID, teacherID); err != nil {
			return err
		}
		var err error
		sheet, err = repo.GetSpreadsheetByClass(ctx, classID)
		if err != nil {
			return err
		}

		var existing map[string]*model.GradeRecord
		if mode == model.ImportModeReplace {
			sheet.MaxValues = b.maxValues.Clone()
			if err := repo.DeleteGradeRecords(ctx, sheet.ID); err != nil {
				return fmt.Errorf("delete records: %w", err)
			}
		} else {
			sheet.MaxValues = sheet.MaxValues.Merge(b.maxValues)
			if existing, err = indexRecords(ctx, repo, sheet.ID); err != nil {
				return err
			}
		}
		sheet.FileName = upload.FileName
		if err := repo.UpdateSpreadsheet(ctx, sheet); err != nil {
			return err
		}

		studentIDs, err := e.writeRecords(ctx, repo, sheet, b, existing)
		if err != nil {
			return err
		}
		if mode == model.ImportModeReplace {
			err = repo.ReplaceRoster(ctx, classID, studentIDs)
		} else {
			err = repo.AddRosterMembers(ctx, classID, studentIDs)
		}
		if err != nil {
			return err
		}
		return loadRecords(ctx, repo, sheet)
	})
	if err != nil {
		return nil, err
	}

	e.logDone(mode, sheet, b, start)
	return sheet, nil
}

// SetStudentVisibleColumns replaces the columns students may see. Names are
// trimmed and deduplicated; each must be a known column of the spreadsheet.
func (e *Engine) SetStudentVisibleColumns(ctx context.Context, spreadsheetID int64, columns []string) (*model.ClassSpreadsheet, error) {
	var sheet *model.ClassSpreadsheet
	err := e.store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		var err error
		if sheet, err = repo.GetSpreadsheet(ctx, spreadsheetID); err != nil {
			return err
		}
		records, err := repo.ListGradeRecords(ctx, sheet.ID)
		if err != nil {
			return err
		}

		known := make(map[string]bool, len(sheet.MaxValues))
		for h := range sheet.MaxValues {
			known[h] = true
		}
		for _, rec := range records {
			for h := range rec.Grades {
				known[h] = true
			}
		}

		visible := make([]string, 0, len(columns))
		seen := make(map[string]bool, len(columns))
		for _, c := range columns {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			if !known[c] {
				return errors.ValidationError{Field: "columns", Value: c, Message: "not a column of this spreadsheet"}
			}
			seen[c] = true
			visible = append(visible, c)
		}

		sheet.VisibleColumns = visible
		if err := repo.UpdateSpreadsheet(ctx, sheet); err != nil {
			return err
		}
		sheet.Records = records
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Int64("spreadsheet_id", sheet.ID).Strs("columns", sheet.VisibleColumns).Msg("Student visible columns updated")
	return sheet, nil
}

// UpdateGradingScheme validates scheme and stores it as the class's scheme,
// replacing the previous one wholesale.
func (e *Engine) UpdateGradingScheme(ctx context.Context, classID, teacherID int64, scheme model.GradingScheme) (*model.Class, error) {
	if err := grading.ValidateScheme(scheme); err != nil {
		return nil, err
	}
	raw, err := e.codec.Encode(scheme)
	if err != nil {
		return nil, err
	}

	var class *model.Class
	err = e.store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		var err error
		if class, err = ownedClass(ctx, repo, classID, teacherID); err != nil {
			return err
		}
		if err := repo.UpdateGradingScheme(ctx, classID, raw); err != nil {
			return err
		}
		class.GradingScheme = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Int64("class_id", classID).Int("items", len(scheme)).Msg("Grading scheme updated")
	return class, nil
}

// writeRecords stores one record per batch entry and returns the students
// the entries belong to. Entries matching a record in existing are merged
// into it; the rest become new records.
func (e *Engine) writeRecords(ctx context.Context, repo db.Repository, sheet *model.ClassSpreadsheet, b *batch, existing map[string]*model.GradeRecord) ([]int64, error) {
	studentIDs := make([]int64, 0, len(b.entries))
	for _, en := range b.entries {
		student, err := e.student(ctx, repo, en)
		if err != nil {
			return nil, err
		}

		rec, ok := existing[en.number]
		if ok {
			rec.MergeGrades(en.grades)
			rec.StudentID = student.ID
		} else {
			rec = &model.GradeRecord{
				SpreadsheetID: sheet.ID,
				StudentID:     student.ID,
				StudentNumber: en.number,
				Grades:        copyGrades(en.grades),
			}
		}
		if err := repo.UpsertGradeRecord(ctx, rec); err != nil {
			return nil, err
		}
		studentIDs = append(studentIDs, student.ID)
	}
	return studentIDs, nil
}

// student finds the student with en's number, creating a placeholder
// account when there is none.
func (e *Engine) student(ctx context.Context, repo db.Repository, en *entry) (*model.User, error) {
	u, err := repo.GetStudentByNumber(ctx, en.number)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errors.ErrStudentNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), e.hashCost)
	if err != nil {
		return nil, fmt.Errorf("placeholder credential: %w", err)
	}
	name := en.name
	if name == "" {
		name = en.number
	}
	u = &model.User{
		Role:          model.RoleStudent,
		Name:          name,
		Email:         fmt.Sprintf("%s@%s", en.number, e.domain),
		StudentNumber: en.number,
		PasswordHash:  hash,
		Placeholder:   true,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create placeholder student %s: %w", en.number, err)
	}
	e.log.Debug().Str("student_number", en.number).Int64("student_id", u.ID).Msg("Placeholder student created")
	return u, nil
}

func (e *Engine) logDone(mode model.ImportMode, sheet *model.ClassSpreadsheet, b *batch, start time.Time) {
	e.log.Info().
		Str("mode", string(mode)).
		Int64("class_id", sheet.ClassID).
		Int64("spreadsheet_id", sheet.ID).
		Int64("version", sheet.Version).
		Int("rows", b.rows()).
		Int("skipped", b.skipped).
		Dur("duration", time.Since(start)).
		Msg("Spreadsheet reconciled")
}

// ownedClass loads the class, reporting it missing when it belongs to
// another teacher.
func ownedClass(ctx context.Context, repo db.Repository, classID, teacherID int64) (*model.Class, error) {
	if _, err := repo.GetTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	class, err := repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, errors.ErrClassNotFound
	}
	return class, nil
}

func indexRecords(ctx context.Context, repo db.Repository, spreadsheetID int64) (map[string]*model.GradeRecord, error) {
	records, err := repo.ListGradeRecords(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*model.GradeRecord, len(records))
	for i := range records {
		index[records[i].StudentNumber] = &records[i]
	}
	return index, nil
}

func loadRecords(ctx context.Context, repo db.Repository, sheet *model.ClassSpreadsheet) error {
	records, err := repo.ListGradeRecords(ctx, sheet.ID)
	if err != nil {
		return err
	}
	sheet.Records = records
	return nil
}

func copyGrades(grades map[string]string) map[string]string {
	out := make(map[string]string, len(grades))
	for k, v := range grades {
		out[k] = v
	}
	return out
}

func className(fileName string) string {
	base := filepath.Base(fileName)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." {
		return "Untitled class"
	}
	return name
}
