package memdb

import (
	"context"
	"sync"
	"time"

	"gradebook-engine/internal/db"
	"gradebook-engine/internal/model"
)

type (
	// DB is an in-memory db.Store. Write transactions are serialized and run
	// against a copy of the tables that replaces the live copy on commit.
	DB struct {
		mutex sync.RWMutex
		t     *tables
		now   func() time.Time
	}

	tables struct {
		users        map[int64]*model.User
		classes      map[int64]*model.Class
		roster       map[int64]map[int64]bool
		spreadsheets map[int64]*model.ClassSpreadsheet
		records      map[int64]*model.GradeRecord
		pk           int64
	}
)

func Open() *DB {
	return &DB{
		t: &tables{
			users:        make(map[int64]*model.User),
			classes:      make(map[int64]*model.Class),
			roster:       make(map[int64]map[int64]bool),
			spreadsheets: make(map[int64]*model.ClassSpreadsheet),
			records:      make(map[int64]*model.GradeRecord),
		},
		now: time.Now,
	}
}

var _ db.Store = (*DB)(nil)

func (d *DB) InTx(ctx context.Context, fn db.TxFunc) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := d.t.clone()
	if err := fn(ctx, &repository{t: work, now: d.now}); err != nil {
		return err
	}
	d.t = work
	return nil
}

// View runs fn on a snapshot; anything fn writes is discarded.
func (d *DB) View(ctx context.Context, fn db.TxFunc) error {
	d.mutex.RLock()
	snapshot := d.t.clone()
	d.mutex.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &repository{t: snapshot, now: d.now})
}

func (t *tables) clone() *tables {
	out := &tables{
		users:        make(map[int64]*model.User, len(t.users)),
		classes:      make(map[int64]*model.Class, len(t.classes)),
		roster:       make(map[int64]map[int64]bool, len(t.roster)),
		spreadsheets: make(map[int64]*model.ClassSpreadsheet, len(t.spreadsheets)),
		records:      make(map[int64]*model.GradeRecord, len(t.records)),
		pk:           t.pk,
	}
	for id, u := range t.users {
		cp := *u
		cp.PasswordHash = append([]byte(nil), u.PasswordHash...)
		out.users[id] = &cp
	}
	for id, c := range t.classes {
		cp := *c
		out.classes[id] = &cp
	}
	for classID, members := range t.roster {
		m := make(map[int64]bool, len(members))
		for id := range members {
			m[id] = true
		}
		out.roster[classID] = m
	}
	for id, s := range t.spreadsheets {
		cp := s.Clone()
		out.spreadsheets[id] = &cp
	}
	for id, r := range t.records {
		cp := r.Clone()
		out.records[id] = &cp
	}
	return out
}

func (t *tables) nextID() int64 {
	t.pk++
	return t.pk
}
