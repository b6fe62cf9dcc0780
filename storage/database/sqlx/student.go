package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/core/student"
)

var studentColumns = []string{
	"id", "nome", "telefone", "email", "endereco", "data_nascimento",
	"observacoes", "atividade_id", "turma_id", "ativo", "data_criacao",
}

type studentRow struct {
	ID         int         `db:"id"`
	Name       string      `db:"nome"`
	Phone      null.String `db:"telefone"`
	Email      null.String `db:"email"`
	Address    null.String `db:"endereco"`
	BirthDate  null.Time   `db:"data_nascimento"`
	Notes      null.String `db:"observacoes"`
	ActivityID null.Int    `db:"atividade_id"`
	ClassID    null.Int    `db:"turma_id"`
	Active     null.Bool   `db:"ativo"`
	CreatedAt  null.Time   `db:"data_criacao"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:         r.ID,
		Name:       r.Name,
		Phone:      r.Phone.String,
		Email:      r.Email.String,
		Address:    r.Address.String,
		BirthDate:  r.BirthDate.Ptr(),
		Notes:      r.Notes.String,
		ActivityID: r.ActivityID.Ptr(),
		ClassID:    r.ClassID.Ptr(),
		Active:     r.Active.Bool,
		CreatedAt:  r.CreatedAt.Time,
	}
}

func studentValues(s student.Student) map[string]interface{} {
	return map[string]interface{}{
		"nome":            s.Name,
		"telefone":        null.NewString(s.Phone, s.Phone != ""),
		"email":           null.NewString(s.Email, s.Email != ""),
		"endereco":        null.NewString(s.Address, s.Address != ""),
		"data_nascimento": null.TimeFromPtr(s.BirthDate),
		"observacoes":     null.NewString(s.Notes, s.Notes != ""),
		"atividade_id":    null.IntFromPtr(s.ActivityID),
		"turma_id":        null.IntFromPtr(s.ClassID),
	}
}

type studentRepository struct {
	db core.DBProvider
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DBProvider) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) getOne(ctx context.Context, b sq.Sqlizer) (student.Student, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return student.Student{}, err
	}
	var row studentRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &row, q, args...)
	})
	if err != nil {
		return student.Student{}, translate(err, student.ErrNotFound)
	}
	return row.toStudent(), nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	vals := studentValues(s)
	vals["ativo"] = s.Active
	vals["data_criacao"] = s.CreatedAt.UTC()
	return repo.getOne(ctx, psql.Insert(schema.TableStudents).
		SetMap(vals).
		Suffix("RETURNING " + joinColumns(studentColumns)))
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	return repo.getOne(ctx, psql.Select(studentColumns...).
		From(schema.TableStudents).
		Where(sq.Eq{"id": id}))
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	b := psql.Select(studentColumns...).From(schema.TableStudents).OrderBy("nome", "id")

	if active := filter.WantsActive(); active != nil {
		b = b.Where(sq.Eq{"ativo": *active})
	}
	if filter.ActivityID != nil {
		b = b.Where(sq.Eq{"atividade_id": *filter.ActivityID})
	}
	if filter.ClassID != nil {
		b = b.Where(sq.Eq{"turma_id": *filter.ClassID})
	}
	if filter.Search != "" {
		b = b.Where(foldedNameLike("nome", filter.Search))
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []studentRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &rows, q, args...)
	})
	if err != nil {
		return nil, translate(err, nil)
	}

	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	return repo.getOne(ctx, psql.Update(schema.TableStudents).
		SetMap(studentValues(s)).
		Where(sq.Eq{"id": s.ID}).
		Suffix("RETURNING " + joinColumns(studentColumns)))
}

func (repo studentRepository) SetStudentActive(ctx context.Context, id int, active bool) (student.Student, error) {
	return repo.getOne(ctx, psql.Update(schema.TableStudents).
		Set("ativo", active).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(studentColumns)))
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int) (int, error) {
	var removed int
	err := repo.db.WithTx(ctx, nil, func(tx core.DBExecutor) error {
		var found int
		if err := tx.GetContext(ctx, &found, "SELECT id FROM alunos WHERE id = $1 FOR UPDATE", id); err != nil {
			return translate(err, student.ErrNotFound)
		}

		n, err := deleteAttendance(ctx, tx, attendance.StudentKey(id))
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM alunos WHERE id = $1", id); err != nil {
			return translate(err, nil)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
