package activity

import (
	"context"
	"time"

	"github.com/amigodopovo/academia/core"
)

var (
	// errors
	ErrNotFound   = core.NewError(core.KindNotFound, "activity not found")
	ErrNameExists = core.NewError(core.KindConflict, "an active activity with this name already exists")
)

type Activity struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	BoundTeachers string    `json:"bound_teachers"`
	TotalStudents int       `json:"total_students"` // cache, see Recount
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type NewActivity struct {
	Name          string `json:"name" validate:"required,notblank,max=100"`
	Description   string `json:"description"`
	BoundTeachers string `json:"bound_teachers"`
}

// UpdateActivity holds the editable fields. Nil fields keep their current value.
type UpdateActivity struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
}

type (
	Repository interface {
		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		GetActivityByID(ctx context.Context, id int) (Activity, error)
		// GetActivityByName does a case-insensitive match among active activities.
		GetActivityByName(ctx context.Context, name string) (Activity, error)
		QueryActivities(ctx context.Context, includeInactive bool) ([]Activity, error)
		UpdateActivity(ctx context.Context, a Activity) (Activity, error)
		SetActivityActive(ctx context.Context, id int, active bool) (Activity, error)
		SetBoundTeachers(ctx context.Context, id int, descriptor string) (Activity, error)
		// RecountActivity stores the number of active students pointing at the activity and returns it.
		RecountActivity(ctx context.Context, id int) (int, error)
	}

	Service interface {
		Create(ctx context.Context, na NewActivity) (Activity, error)
		Update(ctx context.Context, id int, ua UpdateActivity) (Activity, error)
		SoftDelete(ctx context.Context, id int) error
		AttachTeachers(ctx context.Context, id int, descriptor string) (Activity, error)
		Recount(ctx context.Context, id int) (int, error)
		GetByID(ctx context.Context, id int) (Activity, error)
		GetByName(ctx context.Context, name string) (Activity, error)
		Query(ctx context.Context, includeInactive bool) ([]Activity, error)
	}

	service struct {
		repo     Repository
		validate *core.Validator
	}
)

func NewService(repo Repository, validate *core.Validator) Service {
	return &service{repo: repo, validate: validate}
}

func (svc *service) Create(ctx context.Context, na NewActivity) (Activity, error) {
	na.Name = core.CleanString(na.Name)
	na.Description = core.CleanString(na.Description)
	na.BoundTeachers = core.CleanString(na.BoundTeachers)
	if err := svc.validate.Struct(na); err != nil {
		return Activity{}, err
	}
	return svc.repo.CreateActivity(ctx, Activity{
		Name:          na.Name,
		Description:   na.Description,
		BoundTeachers: na.BoundTeachers,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	})
}

func (svc *service) Update(ctx context.Context, id int, ua UpdateActivity) (Activity, error) {
	if ua.Name != nil {
		name := core.CleanString(*ua.Name)
		ua.Name = &name
	}
	if err := svc.validate.Struct(ua); err != nil {
		return Activity{}, err
	}
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if ua.Name != nil {
		act.Name = *ua.Name
	}
	if ua.Description != nil {
		act.Description = core.CleanString(*ua.Description)
	}
	return svc.repo.UpdateActivity(ctx, act)
}

func (svc *service) SoftDelete(ctx context.Context, id int) error {
	_, err := svc.repo.SetActivityActive(ctx, id, false)
	return err
}

func (svc *service) AttachTeachers(ctx context.Context, id int, descriptor string) (Activity, error) {
	return svc.repo.SetBoundTeachers(ctx, id, core.CleanString(descriptor))
}

func (svc *service) Recount(ctx context.Context, id int) (int, error) {
	return svc.repo.RecountActivity(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id int) (Activity, error) {
	return svc.repo.GetActivityByID(ctx, id)
}

func (svc *service) GetByName(ctx context.Context, name string) (Activity, error) {
	name = core.CleanString(name)
	if name == "" {
		return Activity{}, ErrNotFound
	}
	return svc.repo.GetActivityByName(ctx, name)
}

func (svc *service) Query(ctx context.Context, includeInactive bool) ([]Activity, error) {
	return svc.repo.QueryActivities(ctx, includeInactive)
}
