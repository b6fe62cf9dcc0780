package class

import (
	"context"
	"time"

	"github.com/amigodopovo/academia/core"
)

const DefaultMaxCapacity = 20

// Periods
const (
	PeriodMorning   = "manha"
	PeriodAfternoon = "tarde"
	PeriodEvening   = "noite"
)

var (
	// errors
	ErrNotFound        = core.NewError(core.KindNotFound, "class not found")
	ErrUnknownActivity = core.NewError(core.KindReference, "class activity does not exist")
)

// Class is a scheduled group (turma) within an Activity.
type Class struct {
	ID                 int       `json:"id"`
	Name               string    `json:"name"`
	ActivityID         int       `json:"activity_id"`
	Schedule           string    `json:"schedule"`
	Weekdays           string    `json:"weekdays"`
	Period             string    `json:"period"`
	MaxCapacity        int       `json:"max_capacity"`
	ResponsibleTeacher *int      `json:"responsible_teacher"`
	Active             bool      `json:"active"`
	TotalStudents      int       `json:"total_students"` // cache, see Recount
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	CreatedBy          string    `json:"created_by"`
}

type NewClass struct {
	Name               string `json:"name" validate:"required,notblank,max=100"`
	ActivityID         int    `json:"activity_id" validate:"required,gt=0"`
	Schedule           string `json:"schedule" validate:"max=50"`
	Weekdays           string `json:"weekdays" validate:"max=100"`
	Period             string `json:"period" validate:"max=20"`
	MaxCapacity        int    `json:"max_capacity" validate:"gte=0"`
	ResponsibleTeacher *int   `json:"responsible_teacher" validate:"omitempty,gt=0"`
	Description        string `json:"description"`
	CreatedBy          string `json:"created_by" validate:"max=50"`
}

// UpdateClass holds the editable fields. Nil fields keep their current value.
type UpdateClass struct {
	Name               *string `json:"name" validate:"omitempty,notblank,max=100"`
	Schedule           *string `json:"schedule" validate:"omitempty,max=50"`
	Weekdays           *string `json:"weekdays" validate:"omitempty,max=100"`
	Period             *string `json:"period" validate:"omitempty,max=20"`
	MaxCapacity        *int    `json:"max_capacity" validate:"omitempty,gt=0"`
	ResponsibleTeacher *int    `json:"responsible_teacher" validate:"omitempty,gt=0"`
	Description        *string `json:"description"`
}

func (uc UpdateClass) apply(c Class) Class {
	if uc.Name != nil {
		c.Name = core.CleanString(*uc.Name)
	}
	if uc.Schedule != nil {
		c.Schedule = core.CleanString(*uc.Schedule)
	}
	if uc.Weekdays != nil {
		c.Weekdays = core.CleanString(*uc.Weekdays)
	}
	if uc.Period != nil {
		c.Period = core.CleanString(*uc.Period, true /* lower */)
	}
	if uc.MaxCapacity != nil {
		c.MaxCapacity = *uc.MaxCapacity
	}
	if uc.ResponsibleTeacher != nil {
		c.ResponsibleTeacher = uc.ResponsibleTeacher
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	return c
}

type QueryFilter struct {
	ActivityID      *int
	IncludeInactive bool
}

type (
	Repository interface {
		// CreateClass fails with ErrUnknownActivity when ActivityID does not resolve.
		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		// GetClassByName does a case-insensitive match among the active classes of an activity.
		GetClassByName(ctx context.Context, activityID int, name string) (Class, error)
		QueryClasses(ctx context.Context, filter QueryFilter) ([]Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		SetClassActive(ctx context.Context, id int, active bool) (Class, error)
		RecountClass(ctx context.Context, id int) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		Update(ctx context.Context, id int, uc UpdateClass) (Class, error)
		SoftDelete(ctx context.Context, id int) error
		Recount(ctx context.Context, id int) (int, error)
		GetByID(ctx context.Context, id int) (Class, error)
		GetByName(ctx context.Context, activityID int, name string) (Class, error)
		Query(ctx context.Context, filter QueryFilter) ([]Class, error)
	}

	service struct {
		repo     Repository
		validate *core.Validator
	}
)

func NewService(repo Repository, validate *core.Validator) Service {
	return &service{repo: repo, validate: validate}
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	nc.Name = core.CleanString(nc.Name)
	nc.Schedule = core.CleanString(nc.Schedule)
	nc.Weekdays = core.CleanString(nc.Weekdays)
	nc.Period = core.CleanString(nc.Period, true /* lower */)
	nc.CreatedBy = core.CleanString(nc.CreatedBy)
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}
	if nc.MaxCapacity == 0 {
		nc.MaxCapacity = DefaultMaxCapacity
	}
	return svc.repo.CreateClass(ctx, Class{
		Name:               nc.Name,
		ActivityID:         nc.ActivityID,
		Schedule:           nc.Schedule,
		Weekdays:           nc.Weekdays,
		Period:             nc.Period,
		MaxCapacity:        nc.MaxCapacity,
		ResponsibleTeacher: nc.ResponsibleTeacher,
		Active:             true,
		Description:        core.CleanString(nc.Description),
		CreatedAt:          time.Now().UTC(),
		CreatedBy:          nc.CreatedBy,
	})
}

func (svc *service) Update(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	if err := svc.validate.Struct(uc); err != nil {
		return Class{}, err
	}
	if uc.Name != nil && core.CleanString(*uc.Name) == "" {
		return Class{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name must not be blank"})
	}
	c, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.UpdateClass(ctx, uc.apply(c))
}

func (svc *service) SoftDelete(ctx context.Context, id int) error {
	_, err := svc.repo.SetClassActive(ctx, id, false)
	return err
}

func (svc *service) Recount(ctx context.Context, id int) (int, error) {
	return svc.repo.RecountClass(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *service) GetByName(ctx context.Context, activityID int, name string) (Class, error) {
	name = core.CleanString(name)
	if name == "" {
		return Class{}, ErrNotFound
	}
	return svc.repo.GetClassByName(ctx, activityID, name)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}
