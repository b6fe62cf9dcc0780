package student

import (
	"context"
	"strconv"
	"time"

	"github.com/amigodopovo/academia/core"
)

var (
	// errors
	ErrNotFound  = core.NewError(core.KindNotFound, "student not found")
	ErrEmptyName = core.NewError(core.KindValidation, "name must not be blank")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields, ordered by name.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		SetStudentActive(ctx context.Context, id int, active bool) (Student, error)
		// DeleteStudent removes the student and its attendance records in one transaction.
		// It returns the number of attendance records removed.
		DeleteStudent(ctx context.Context, id int) (int, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		SoftDelete(ctx context.Context, id int) error
		Reactivate(ctx context.Context, id int) (Student, error)
		HardDelete(ctx context.Context, id int) (int, error)
		GetByID(ctx context.Context, id int) (Student, error)
		Query(ctx context.Context, filter QueryFilter) ([]Student, error)
		Search(ctx context.Context, term string) ([]Student, error)
	}

	// Recounter refreshes the total_alunos cache of an activity or a class.
	Recounter interface {
		Recount(ctx context.Context, id int) (int, error)
	}

	service struct {
		repo       Repository
		validate   *core.Validator
		log        core.Logger
		activities Recounter
		classes    Recounter
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, validate *core.Validator, log core.Logger, activities, classes Recounter) Service {
	return &service{
		repo:       repo,
		validate:   validate,
		log:        log,
		activities: activities,
		classes:    classes,
	}
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	std, err := svc.repo.CreateStudent(ctx, Student{
		Name:       ns.Name,
		Phone:      ns.Phone,
		Email:      ns.Email,
		Address:    ns.Address,
		BirthDate:  ns.BirthDate,
		Notes:      ns.Notes,
		ActivityID: ns.ActivityID,
		ClassID:    ns.ClassID,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Student{}, err
	}
	svc.recount(ctx, std)
	return std, nil
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	if err := us.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std, err := svc.repo.UpdateStudent(ctx, us.Apply(orig))
	if err != nil {
		return Student{}, err
	}
	if !samePlacement(orig, std) {
		svc.recount(ctx, orig, std)
	}
	return std, nil
}

func (svc *service) SoftDelete(ctx context.Context, id int) error {
	std, err := svc.repo.SetStudentActive(ctx, id, false)
	if err != nil {
		return err
	}
	svc.log.Info("student " + strconv.Itoa(id) + " deactivated")
	svc.recount(ctx, std)
	return nil
}

func (svc *service) Reactivate(ctx context.Context, id int) (Student, error) {
	std, err := svc.repo.SetStudentActive(ctx, id, true)
	if err != nil {
		return Student{}, err
	}
	svc.recount(ctx, std)
	return std, nil
}

func (svc *service) HardDelete(ctx context.Context, id int) (int, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := svc.repo.DeleteStudent(ctx, id)
	if err != nil {
		return 0, err
	}
	svc.log.Info("student deleted", map[string]interface{}{"id": id, "attendance_removed": n})
	svc.recount(ctx, std)
	return n, nil
}

// recount refreshes the caches of every activity and class the students point at.
// Failures are only logged.
func (svc *service) recount(ctx context.Context, stds ...Student) {
	activityIDs := make(map[int]bool)
	classIDs := make(map[int]bool)
	for _, s := range stds {
		if s.ActivityID != nil {
			activityIDs[*s.ActivityID] = true
		}
		if s.ClassID != nil {
			classIDs[*s.ClassID] = true
		}
	}

	if svc.classes != nil {
		for id := range classIDs {
			if _, err := svc.classes.Recount(ctx, id); err != nil {
				svc.log.Warn("recounting class "+strconv.Itoa(id), err)
			}
		}
	}
	if svc.activities != nil {
		for id := range activityIDs {
			if _, err := svc.activities.Recount(ctx, id); err != nil {
				svc.log.Warn("recounting activity "+strconv.Itoa(id), err)
			}
		}
	}
}

func samePlacement(a, b Student) bool {
	return a.Active == b.Active && sameID(a.ActivityID, b.ActivityID) && sameID(a.ClassID, b.ClassID)
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

// Search returns every active student when term is blank.
func (svc *service) Search(ctx context.Context, term string) ([]Student, error) {
	return svc.Query(ctx, QueryFilter{Search: term})
}
