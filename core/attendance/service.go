package attendance

import (
	"context"
	"time"

	"github.com/amigodopovo/academia/core"
)

var (
	// errors
	ErrStudentNotFound = core.NewError(core.KindNotFound, "student not found")
	ErrStudentInactive = core.NewError(core.KindValidation, "student is inactive")
)

type (
	Repository interface {
		// InsertRecord re-checks, inside its transaction, that the student exists and is active.
		InsertRecord(ctx context.Context, r Record) (Record, error)
		ListForStudent(ctx context.Context, studentID string, rng DateRange) ([]Record, error)
		ListForClassOnDate(ctx context.Context, classID int, date time.Time) ([]Record, error)
		DeleteForStudent(ctx context.Context, studentID string) (int, error)
	}

	Service interface {
		Record(ctx context.Context, nr NewRecord) (Record, error)
		ListForStudent(ctx context.Context, studentID int, rng DateRange) ([]Record, error)
		ListForClassOnDate(ctx context.Context, classID int, date time.Time) ([]Record, error)
		DeleteForStudent(ctx context.Context, studentID int) (int, error)
		// Frequency returns the percentage of P records of a student within rng.
		Frequency(ctx context.Context, studentID int, rng DateRange) (float64, error)
	}

	service struct {
		repo     Repository
		validate *core.Validator
	}
)

func NewService(repo Repository, validate *core.Validator) Service {
	return &service{repo: repo, validate: validate}
}

func (svc *service) Record(ctx context.Context, nr NewRecord) (Record, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	return svc.repo.InsertRecord(ctx, Record{
		StudentID:  StudentKey(nr.StudentID),
		Date:       Day(nr.Date),
		Status:     Status(nr.Status),
		Kind:       Kind(nr.Kind),
		ClassID:    nr.ClassID,
		Notes:      nr.Notes,
		RecordedAt: time.Now().UTC(),
	})
}

func (svc *service) ListForStudent(ctx context.Context, studentID int, rng DateRange) ([]Record, error) {
	return svc.repo.ListForStudent(ctx, StudentKey(studentID), rng)
}

func (svc *service) ListForClassOnDate(ctx context.Context, classID int, date time.Time) ([]Record, error) {
	return svc.repo.ListForClassOnDate(ctx, classID, Day(date))
}

func (svc *service) DeleteForStudent(ctx context.Context, studentID int) (int, error) {
	return svc.repo.DeleteForStudent(ctx, StudentKey(studentID))
}

func (svc *service) Frequency(ctx context.Context, studentID int, rng DateRange) (float64, error) {
	records, err := svc.ListForStudent(ctx, studentID, rng)
	if err != nil {
		return 0, err
	}
	return Frequency(records), nil
}
