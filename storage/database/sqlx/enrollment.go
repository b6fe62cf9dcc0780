package sqlxrepos

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/enrollment"
)

type enrollmentRepository struct {
	db core.DBProvider
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DBProvider) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) AssignClass(
	ctx context.Context,
	studentID, classID int,
	check func(cur enrollment.Placement) error,
) (enrollment.Assignment, error) {
	var asg enrollment.Assignment

	err := repo.db.WithTx(ctx, nil, func(tx core.DBExecutor) error {
		var std struct {
			Active     bool     `db:"ativo"`
			ClassID    null.Int `db:"turma_id"`
			ActivityID null.Int `db:"atividade_id"`
		}
		err := tx.GetContext(ctx, &std, "SELECT ativo, turma_id, atividade_id FROM alunos WHERE id = $1 FOR UPDATE", studentID)
		if err != nil {
			return translate(err, enrollment.ErrStudentNotFound)
		}
		if !std.Active {
			return enrollment.ErrStudentInactive
		}

		// the class row lock serializes enrollments into the same class
		var cls struct {
			Active      bool     `db:"ativa"`
			ActivityID  int      `db:"atividade_id"`
			MaxCapacity null.Int `db:"capacidade_maxima"`
		}
		err = tx.GetContext(ctx, &cls, "SELECT ativa, atividade_id, capacidade_maxima FROM turmas WHERE id = $1 FOR UPDATE", classID)
		if err != nil {
			return translate(err, enrollment.ErrClassNotFound)
		}
		if !cls.Active {
			return enrollment.ErrClassInactive
		}

		cur := enrollment.Placement{ClassID: std.ClassID.Ptr(), ActivityID: std.ActivityID.Ptr()}
		if check != nil {
			if err = check(cur); err != nil {
				return err
			}
		}

		maxCap := class.DefaultMaxCapacity
		if cls.MaxCapacity.Valid {
			maxCap = cls.MaxCapacity.Int
		}
		var enrolled int
		err = tx.GetContext(ctx, &enrolled,
			"SELECT COUNT(*) FROM alunos WHERE turma_id = $1 AND ativo AND id <> $2", classID, studentID)
		if err != nil {
			return translate(err, nil)
		}
		if enrolled >= maxCap {
			return enrollment.ErrClassFull
		}

		_, err = tx.ExecContext(ctx, "UPDATE alunos SET turma_id = $1, atividade_id = $2 WHERE id = $3",
			classID, cls.ActivityID, studentID)
		if err != nil {
			return translate(err, nil)
		}

		asg = enrollment.Assignment{
			StudentID:  studentID,
			ClassID:    classID,
			ActivityID: cls.ActivityID,
			Previous:   cur,
		}
		return nil
	})
	if err != nil {
		return enrollment.Assignment{}, err
	}
	return asg, nil
}
