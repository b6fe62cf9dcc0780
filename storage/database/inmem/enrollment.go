package inmemdb

import (
	"context"

	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) AssignClass(
	_ context.Context,
	studentID, classID int,
	check func(cur enrollment.Placement) error,
) (enrollment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.students[studentID]
	if !ok {
		return enrollment.Assignment{}, enrollment.ErrStudentNotFound
	}
	if !s.Active {
		return enrollment.Assignment{}, enrollment.ErrStudentInactive
	}
	c, ok := repo.db.classes[classID]
	if !ok {
		return enrollment.Assignment{}, enrollment.ErrClassNotFound
	}
	if !c.Active {
		return enrollment.Assignment{}, enrollment.ErrClassInactive
	}

	cur := enrollment.Placement{ClassID: copyInt(s.ClassID), ActivityID: copyInt(s.ActivityID)}
	if check != nil {
		if err := check(cur); err != nil {
			return enrollment.Assignment{}, err
		}
	}
	maxCap := c.MaxCapacity
	if maxCap <= 0 {
		maxCap = class.DefaultMaxCapacity
	}
	if repo.db.countInClass(classID, studentID) >= maxCap {
		return enrollment.Assignment{}, enrollment.ErrClassFull
	}

	newClass, newActivity := classID, c.ActivityID
	s.ClassID = &newClass
	s.ActivityID = &newActivity
	return enrollment.Assignment{
		StudentID:  studentID,
		ClassID:    classID,
		ActivityID: c.ActivityID,
		Previous:   cur,
	}, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
