package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/schema"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

// nameTaken mirrors the partial unique index on lower(nome) WHERE ativa.
func (repo *activityRepository) nameTaken(name string, exclID int) bool {
	for _, a := range repo.db.activities {
		if a.ID != exclID && a.Active && strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

func (repo *activityRepository) CreateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.Active && repo.nameTaken(a.Name, 0) {
		return activity.Activity{}, activity.ErrNameExists
	}
	a.ID = repo.db.nextID(schema.TableActivities)
	repo.db.activities[a.ID] = &a
	return a, nil
}

func (repo *activityRepository) GetActivityByID(_ context.Context, id int) (activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) GetActivityByName(_ context.Context, name string) (activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var found *activity.Activity
	for _, a := range repo.db.activities {
		if a.Active && strings.EqualFold(a.Name, name) && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return activity.Activity{}, activity.ErrNotFound
	}
	return *found, nil
}

func (repo *activityRepository) QueryActivities(_ context.Context, includeInactive bool) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	acts := make([]activity.Activity, 0, len(repo.db.activities))
	for _, a := range repo.db.activities {
		if a.Active || includeInactive {
			acts = append(acts, *a)
		}
	}
	sort.Slice(acts, func(i, j int) bool {
		if acts[i].Name != acts[j].Name {
			return acts[i].Name < acts[j].Name
		}
		return acts[i].ID < acts[j].ID
	})
	return acts, nil
}

func (repo *activityRepository) UpdateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.activities[a.ID]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	if orig.Active && repo.nameTaken(a.Name, a.ID) {
		return activity.Activity{}, activity.ErrNameExists
	}
	orig.Name = a.Name
	orig.Description = a.Description
	return *orig, nil
}

func (repo *activityRepository) SetActivityActive(_ context.Context, id int, active bool) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.activities[id]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	if active && !a.Active && repo.nameTaken(a.Name, a.ID) {
		return activity.Activity{}, activity.ErrNameExists
	}
	a.Active = active
	return *a, nil
}

func (repo *activityRepository) SetBoundTeachers(_ context.Context, id int, descriptor string) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.activities[id]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	a.BoundTeachers = descriptor
	return *a, nil
}

func (repo *activityRepository) RecountActivity(_ context.Context, id int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.activities[id]
	if !ok {
		return 0, activity.ErrNotFound
	}
	var n int
	for _, s := range repo.db.students {
		if s.Active && s.ActivityID != nil && *s.ActivityID == id {
			n++
		}
	}
	a.TotalStudents = n
	return n, nil
}
