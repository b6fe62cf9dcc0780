package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// checkRefs plays the role of the alunos foreign keys.
func (repo *studentRepository) checkRefs(s student.Student) error {
	if s.ActivityID != nil {
		if _, ok := repo.db.activities[*s.ActivityID]; !ok {
			return core.NewError(core.KindReference, "activity does not exist")
		}
	}
	if s.ClassID != nil {
		if _, ok := repo.db.classes[*s.ClassID]; !ok {
			return core.NewError(core.KindReference, "class does not exist")
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkRefs(s); err != nil {
		return student.Student{}, err
	}
	s.ID = repo.db.nextID(schema.TableStudents)
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students {
		if filter.Match(*s) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		ni, nj := strings.ToLower(students[i].Name), strings.ToLower(students[j].Name)
		if ni != nj {
			return ni < nj
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkRefs(s); err != nil {
		return student.Student{}, err
	}
	// active flag and creation time are not editable here
	s.Active = orig.Active
	s.CreatedAt = orig.CreatedAt
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) SetStudentActive(_ context.Context, id int, active bool) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.Active = active
	return *s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return 0, student.ErrNotFound
	}
	n := repo.db.deleteAttendance(attendance.StudentKey(id))
	delete(repo.db.students, id)
	return n, nil
}
