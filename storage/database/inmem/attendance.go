package inmemdb

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/schema"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) InsertRecord(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	id, err := strconv.Atoi(r.StudentID)
	if err != nil {
		return attendance.Record{}, attendance.ErrStudentNotFound
	}
	s, ok := repo.db.students[id]
	if !ok {
		return attendance.Record{}, attendance.ErrStudentNotFound
	}
	if !s.Active {
		return attendance.Record{}, attendance.ErrStudentInactive
	}
	// presencas_status_check
	if !r.Status.Valid() {
		return attendance.Record{}, core.NewError(core.KindValidation,
			`pq: new row for relation "presencas" violates check constraint "presencas_status_check"`)
	}
	if r.Kind == "" {
		r.Kind = attendance.KindManual
	}

	r.ID = repo.db.nextID(schema.TableAttendance)
	repo.db.attendance[r.ID] = &r
	return r, nil
}

func (repo *attendanceRepository) filter(keep func(r attendance.Record) bool) []attendance.Record {
	records := make([]attendance.Record, 0)
	for _, r := range repo.db.attendance {
		if keep(*r) {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})
	return records
}

func (repo *attendanceRepository) ListForStudent(_ context.Context, studentID string, rng attendance.DateRange) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(r attendance.Record) bool {
		return r.StudentID == studentID && rng.Contains(r.Date)
	}), nil
}

func (repo *attendanceRepository) ListForClassOnDate(_ context.Context, classID int, date time.Time) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	day := attendance.Day(date)
	return repo.filter(func(r attendance.Record) bool {
		return r.ClassID != nil && *r.ClassID == classID && attendance.Day(r.Date).Equal(day)
	}), nil
}

func (repo *attendanceRepository) DeleteForStudent(_ context.Context, studentID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.db.deleteAttendance(studentID), nil
}

func (db *DB) deleteAttendance(studentID string) int {
	var n int
	for id, r := range db.attendance {
		if r.StudentID == studentID {
			delete(db.attendance, id)
			n++
		}
	}
	return n
}
