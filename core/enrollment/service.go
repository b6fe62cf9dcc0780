package enrollment

import (
	"context"
	"strconv"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/student"
)

var (
	// errors
	ErrStudentNotFound = core.NewError(core.KindNotFound, "student not found")
	ErrClassNotFound   = core.NewError(core.KindNotFound, "class not found")
	ErrStudentInactive = core.NewError(core.KindValidation, "student is inactive")
	ErrClassInactive   = core.NewError(core.KindValidation, "class is inactive")
	ErrClassFull       = core.NewError(core.KindConflict, "class is at maximum capacity")
	ErrNotEnrolled     = core.NewError(core.KindValidation, "student is not enrolled in any class")
	ErrSameClass       = core.NewError(core.KindValidation, "student is already in this class")
)

type (
	// Placement is the class and activity a student currently points at.
	Placement struct {
		ClassID    *int
		ActivityID *int
	}

	// Assignment is the outcome of moving a student into a class.
	Assignment struct {
		StudentID  int
		ClassID    int
		ActivityID int
		Previous   Placement
	}

	Repository interface {
		// AssignClass sets the student's class and the class's activity in one transaction.
		// check runs inside the transaction against the current placement and may veto the change.
		// Full or inactive classes and inactive students are refused.
		AssignClass(ctx context.Context, studentID, classID int, check func(cur Placement) error) (Assignment, error)
	}

	Service interface {
		Enroll(ctx context.Context, studentID, classID int) (Assignment, error)
		Transfer(ctx context.Context, studentID, newClassID int) (Assignment, error)
		BulkImport(ctx context.Context, rows []ImportRow, opts ImportOptions) (ImportSummary, error)
	}

	service struct {
		repo       Repository
		students   student.Service
		activities activity.Service
		classes    class.Service
		log        core.Logger
	}
)

func NewService(
	repo Repository,
	students student.Service,
	activities activity.Service,
	classes class.Service,
	log core.Logger,
) Service {
	return &service{
		repo:       repo,
		students:   students,
		activities: activities,
		classes:    classes,
		log:        log,
	}
}

func (svc *service) Enroll(ctx context.Context, studentID, classID int) (Assignment, error) {
	asg, err := svc.repo.AssignClass(ctx, studentID, classID, nil)
	if err != nil {
		return Assignment{}, err
	}
	svc.recount(ctx, asg)
	return asg, nil
}

func (svc *service) Transfer(ctx context.Context, studentID, newClassID int) (Assignment, error) {
	asg, err := svc.repo.AssignClass(ctx, studentID, newClassID, func(cur Placement) error {
		if cur.ClassID == nil {
			return ErrNotEnrolled
		}
		if *cur.ClassID == newClassID {
			return ErrSameClass
		}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	svc.recount(ctx, asg)
	return asg, nil
}

// recount refreshes the total_alunos caches touched by asg. Failures are only logged.
func (svc *service) recount(ctx context.Context, asg Assignment) {
	classIDs := []int{asg.ClassID}
	if prev := asg.Previous.ClassID; prev != nil && *prev != asg.ClassID {
		classIDs = append(classIDs, *prev)
	}
	activityIDs := []int{asg.ActivityID}
	if prev := asg.Previous.ActivityID; prev != nil && *prev != asg.ActivityID {
		activityIDs = append(activityIDs, *prev)
	}

	for _, id := range classIDs {
		if _, err := svc.classes.Recount(ctx, id); err != nil {
			svc.log.Warn("recounting class "+strconv.Itoa(id), err)
		}
	}
	for _, id := range activityIDs {
		if _, err := svc.activities.Recount(ctx, id); err != nil {
			svc.log.Warn("recounting activity "+strconv.Itoa(id), err)
		}
	}
}
