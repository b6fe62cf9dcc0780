package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/schema"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.activities[c.ActivityID]; !ok {
		return class.Class{}, class.ErrUnknownActivity
	}
	c.ID = repo.db.nextID(schema.TableClasses)
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassByName(_ context.Context, activityID int, name string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var found *class.Class
	for _, c := range repo.db.classes {
		if c.Active && c.ActivityID == activityID && strings.EqualFold(c.Name, name) &&
			(found == nil || c.ID < found.ID) {
			found = c
		}
	}
	if found == nil {
		return class.Class{}, class.ErrNotFound
	}
	return *found, nil
}

func (repo *classRepository) QueryClasses(_ context.Context, filter class.QueryFilter) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]class.Class, 0)
	for _, c := range repo.db.classes {
		if !c.Active && !filter.IncludeInactive {
			continue
		}
		if filter.ActivityID != nil && c.ActivityID != *filter.ActivityID {
			continue
		}
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.classes[c.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	orig.Name = c.Name
	orig.Schedule = c.Schedule
	orig.Weekdays = c.Weekdays
	orig.Period = c.Period
	orig.MaxCapacity = c.MaxCapacity
	orig.ResponsibleTeacher = c.ResponsibleTeacher
	orig.Description = c.Description
	return *orig, nil
}

func (repo *classRepository) SetClassActive(_ context.Context, id int, active bool) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.classes[id]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	c.Active = active
	return *c, nil
}

func (repo *classRepository) RecountClass(_ context.Context, id int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.classes[id]
	if !ok {
		return 0, class.ErrNotFound
	}
	c.TotalStudents = repo.db.countInClass(id, 0)
	return c.TotalStudents, nil
}

// countInClass counts the active students of a class, ignoring exclStudentID.
func (db *DB) countInClass(classID, exclStudentID int) int {
	var n int
	for _, s := range db.students {
		if s.ID != exclStudentID && s.Active && s.ClassID != nil && *s.ClassID == classID {
			n++
		}
	}
	return n
}
