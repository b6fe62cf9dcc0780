package student

import (
	"time"

	"github.com/amigodopovo/academia/core"
)

type Student struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Address    string     `json:"address"`
	BirthDate  *time.Time `json:"birth_date"`
	Notes      string     `json:"notes"`
	ActivityID *int       `json:"activity_id"`
	ClassID    *int       `json:"class_id"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name       string     `json:"name" validate:"required,notblank,max=100"`
	Phone      string     `json:"phone" validate:"omitempty,max=20"`
	Email      string     `json:"email" validate:"omitempty,email,max=100"`
	Address    string     `json:"address"`
	BirthDate  *time.Time `json:"birth_date"`
	Notes      string     `json:"notes"`
	ActivityID *int       `json:"activity_id" validate:"omitempty,gt=0"`
	ClassID    *int       `json:"class_id" validate:"omitempty,gt=0"`
}

func (ns *NewStudent) Validate(v *core.Validator) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Phone = core.RemoveSpaces(ns.Phone)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.Notes = core.CleanString(ns.Notes)
	return v.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields keep their current value.
type UpdateStudent struct {
	Name       *string    `json:"name" validate:"omitempty,notblank,max=100"`
	Phone      *string    `json:"phone" validate:"omitempty,max=20"`
	Email      *string    `json:"email" validate:"omitempty,email,max=100"`
	Address    *string    `json:"address"`
	BirthDate  *time.Time `json:"birth_date"`
	Notes      *string    `json:"notes"`
	ActivityID *int       `json:"activity_id" validate:"omitempty,gt=0"`
	ClassID    *int       `json:"class_id" validate:"omitempty,gt=0"`
}

func (us *UpdateStudent) Validate(v *core.Validator) error {
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		if name == "" {
			return core.NewValidationError(ErrEmptyName, core.FieldError{Field: "name", Error: ErrEmptyName.Error()})
		}
		us.Name = &name
	}
	if us.Phone != nil {
		phone := core.RemoveSpaces(*us.Phone)
		us.Phone = &phone
	}
	if us.Email != nil {
		email := core.CleanString(*us.Email, true /* lower */)
		us.Email = &email
	}
	return v.Struct(us)
}

// Apply copies the set fields of us onto s.
func (us UpdateStudent) Apply(s Student) Student {
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.Email != nil {
		s.Email = *us.Email
	}
	if us.Address != nil {
		s.Address = core.CleanString(*us.Address)
	}
	if us.BirthDate != nil {
		s.BirthDate = us.BirthDate
	}
	if us.Notes != nil {
		s.Notes = core.CleanString(*us.Notes)
	}
	if us.ActivityID != nil {
		s.ActivityID = us.ActivityID
	}
	if us.ClassID != nil {
		s.ClassID = us.ClassID
	}
	return s
}

type QueryFilter struct {
	// Search is a case and accent insensitive substring of the name.
	Search     string
	ActivityID *int
	ClassID    *int
	// Active selects on the active flag. Nil means active only, unless AllStatuses is set.
	Active      *bool
	AllStatuses bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// WantsActive returns the active flag to filter on, or nil to match both.
func (qf QueryFilter) WantsActive() *bool {
	if qf.Active != nil {
		return qf.Active
	}
	if qf.AllStatuses {
		return nil
	}
	return core.BoolPtr(true)
}

// Match reports whether s satisfies the filter.
func (qf QueryFilter) Match(s Student) bool {
	if active := qf.WantsActive(); active != nil && s.Active != *active {
		return false
	}
	if qf.ActivityID != nil && (s.ActivityID == nil || *s.ActivityID != *qf.ActivityID) {
		return false
	}
	if qf.ClassID != nil && (s.ClassID == nil || *s.ClassID != *qf.ClassID) {
		return false
	}
	return qf.Search == "" || core.ContainsFold(s.Name, qf.Search)
}
