package memdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gradebook-engine/internal/model"
	"gradebook-engine/pkg/errors"
)

type repository struct {
	t   *tables
	now func() time.Time
}

func (r *repository) GetUser(_ context.Context, id int64) (*model.User, error) {
	if u, ok := r.t.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errors.ErrNotFound
}

func (r *repository) GetTeacher(ctx context.Context, id int64) (*model.User, error) {
	u, err := r.GetUser(ctx, id)
	if err != nil || !u.IsTeacher() {
		return nil, errors.ErrTeacherNotFound
	}
	return u, nil
}

func (r *repository) GetStudentByNumber(_ context.Context, studentNumber string) (*model.User, error) {
	for _, u := range r.t.users {
		if u.IsStudent() && u.StudentNumber == studentNumber {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.ErrStudentNotFound
}

func (r *repository) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range r.t.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: email %s", errors.ErrDuplicate, user.Email)
		}
		if user.StudentNumber != "" && u.StudentNumber == user.StudentNumber {
			return fmt.Errorf("%w: student number %s", errors.ErrDuplicate, user.StudentNumber)
		}
	}
	now := r.now().UTC()
	user.ID = r.t.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.t.users[cp.ID] = &cp
	return nil
}

func (r *repository) CreateClass(_ context.Context, class *model.Class) error {
	now := r.now().UTC()
	class.ID = r.t.nextID()
	class.CreatedAt, class.UpdatedAt = now, now
	cp := *class
	r.t.classes[cp.ID] = &cp
	return nil
}

func (r *repository) GetClass(_ context.Context, id int64) (*model.Class, error) {
	if c, ok := r.t.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, errors.ErrClassNotFound
}

func (r *repository) UpdateGradingScheme(_ context.Context, classID int64, scheme string) error {
	c, ok := r.t.classes[classID]
	if !ok {
		return errors.ErrClassNotFound
	}
	c.GradingScheme = scheme
	c.UpdatedAt = r.now().UTC()
	return nil
}

func (r *repository) ListRoster(_ context.Context, classID int64) ([]model.User, error) {
	var users []model.User
	for id := range r.t.roster[classID] {
		if u, ok := r.t.users[id]; ok {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].StudentNumber < users[j].StudentNumber
	})
	return users, nil
}

func (r *repository) AddRosterMembers(_ context.Context, classID int64, studentIDs []int64) error {
	members, ok := r.t.roster[classID]
	if !ok {
		members = make(map[int64]bool, len(studentIDs))
		r.t.roster[classID] = members
	}
	for _, id := range studentIDs {
		members[id] = true
	}
	return nil
}

func (r *repository) ReplaceRoster(ctx context.Context, classID int64, studentIDs []int64) error {
	delete(r.t.roster, classID)
	return r.AddRosterMembers(ctx, classID, studentIDs)
}

func (r *repository) CreateSpreadsheet(_ context.Context, sheet *model.ClassSpreadsheet) error {
	for _, s := range r.t.spreadsheets {
		if s.ClassID == sheet.ClassID {
			return fmt.Errorf("%w: spreadsheet for class %d", errors.ErrDuplicate, sheet.ClassID)
		}
	}
	now := r.now().UTC()
	sheet.ID = r.t.nextID()
	sheet.Version = 1
	sheet.CreatedAt, sheet.UpdatedAt = now, now

	cp := sheet.Clone()
	cp.Records = nil
	if cp.MaxValues == nil {
		cp.MaxValues = model.AssessmentColumnSpec{}
	}
	r.t.spreadsheets[cp.ID] = &cp
	return nil
}

func (r *repository) GetSpreadsheet(_ context.Context, id int64) (*model.ClassSpreadsheet, error) {
	if s, ok := r.t.spreadsheets[id]; ok {
		cp := s.Clone()
		return &cp, nil
	}
	return nil, errors.ErrSpreadsheetNotFound
}

func (r *repository) GetSpreadsheetByClass(_ context.Context, classID int64) (*model.ClassSpreadsheet, error) {
	for _, s := range r.t.spreadsheets {
		if s.ClassID == classID {
			cp := s.Clone()
			return &cp, nil
		}
	}
	return nil, errors.ErrSpreadsheetNotFound
}

func (r *repository) UpdateSpreadsheet(_ context.Context, sheet *model.ClassSpreadsheet) error {
	stored, ok := r.t.spreadsheets[sheet.ID]
	if !ok {
		return errors.ErrSpreadsheetNotFound
	}
	if stored.Version != sheet.Version {
		return errors.NewRetryableError(errors.ErrConflict,
			fmt.Sprintf("spreadsheet %d changed since version %d", sheet.ID, sheet.Version))
	}
	sheet.Version++
	sheet.UpdatedAt = r.now().UTC()

	cp := sheet.Clone()
	cp.Records = nil
	r.t.spreadsheets[cp.ID] = &cp
	return nil
}

func (r *repository) ListGradeRecords(_ context.Context, spreadsheetID int64) ([]model.GradeRecord, error) {
	var records []model.GradeRecord
	for _, rec := range r.t.records {
		if rec.SpreadsheetID == spreadsheetID {
			records = append(records, rec.Clone())
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *repository) GetGradeRecord(_ context.Context, spreadsheetID int64, studentNumber string) (*model.GradeRecord, error) {
	if rec := r.findRecord(spreadsheetID, studentNumber); rec != nil {
		cp := rec.Clone()
		return &cp, nil
	}
	return nil, errors.ErrRecordNotFound
}

func (r *repository) UpsertGradeRecord(_ context.Context, record *model.GradeRecord) error {
	now := r.now().UTC()
	if existing := r.findRecord(record.SpreadsheetID, record.StudentNumber); existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		record.ID = r.t.nextID()
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	cp := record.Clone()
	r.t.records[cp.ID] = &cp
	return nil
}

func (r *repository) DeleteGradeRecords(_ context.Context, spreadsheetID int64) error {
	for id, rec := range r.t.records {
		if rec.SpreadsheetID == spreadsheetID {
			delete(r.t.records, id)
		}
	}
	return nil
}

func (r *repository) findRecord(spreadsheetID int64, studentNumber string) *model.GradeRecord {
	for _, rec := range r.t.records {
		if rec.SpreadsheetID == spreadsheetID && rec.StudentNumber == studentNumber {
			return rec
		}
	}
	return nil
}
