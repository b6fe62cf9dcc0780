package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/schema"
)

var classColumns = []string{
	"id", "nome", "atividade_id", "horario", "dias_semana", "period", "capacidade_maxima",
	"professor_responsavel", "ativa", "total_alunos", "descricao", "data_criacao", "criado_por",
}

type classRow struct {
	ID                 int         `db:"id"`
	Name               string      `db:"nome"`
	ActivityID         int         `db:"atividade_id"`
	Schedule           null.String `db:"horario"`
	Weekdays           null.String `db:"dias_semana"`
	Period             null.String `db:"period"`
	MaxCapacity        null.Int    `db:"capacidade_maxima"`
	ResponsibleTeacher null.Int    `db:"professor_responsavel"`
	Active             null.Bool   `db:"ativa"`
	TotalStudents      null.Int    `db:"total_alunos"`
	Description        null.String `db:"descricao"`
	CreatedAt          null.Time   `db:"data_criacao"`
	CreatedBy          null.String `db:"criado_por"`
}

func (r classRow) toClass() class.Class {
	maxCap := r.MaxCapacity.Int
	if !r.MaxCapacity.Valid {
		maxCap = class.DefaultMaxCapacity
	}
	return class.Class{
		ID:                 r.ID,
		Name:               r.Name,
		ActivityID:         r.ActivityID,
		Schedule:           r.Schedule.String,
		Weekdays:           r.Weekdays.String,
		Period:             r.Period.String,
		MaxCapacity:        maxCap,
		ResponsibleTeacher: r.ResponsibleTeacher.Ptr(),
		Active:             r.Active.Bool,
		TotalStudents:      r.TotalStudents.Int,
		Description:        r.Description.String,
		CreatedAt:          r.CreatedAt.Time,
		CreatedBy:          r.CreatedBy.String,
	}
}

func classValues(c class.Class) map[string]interface{} {
	return map[string]interface{}{
		"nome":                  c.Name,
		"horario":               null.NewString(c.Schedule, c.Schedule != ""),
		"dias_semana":           null.NewString(c.Weekdays, c.Weekdays != ""),
		"period":                null.NewString(c.Period, c.Period != ""),
		"capacidade_maxima":     c.MaxCapacity,
		"professor_responsavel": null.IntFromPtr(c.ResponsibleTeacher),
		"descricao":             null.NewString(c.Description, c.Description != ""),
	}
}

type classRepository struct {
	db core.DBProvider
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db core.DBProvider) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) getOne(ctx context.Context, b sq.Sqlizer) (class.Class, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return class.Class{}, err
	}
	var row classRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &row, q, args...)
	})
	if err != nil {
		return class.Class{}, translate(err, class.ErrNotFound)
	}
	return row.toClass(), nil
}

func (repo classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	vals := classValues(c)
	vals["atividade_id"] = c.ActivityID
	vals["ativa"] = c.Active
	vals["total_alunos"] = c.TotalStudents
	vals["data_criacao"] = c.CreatedAt.UTC()
	vals["criado_por"] = null.NewString(c.CreatedBy, c.CreatedBy != "")

	cls, err := repo.getOne(ctx, psql.Insert(schema.TableClasses).
		SetMap(vals).
		Suffix("RETURNING " + joinColumns(classColumns)))
	if core.IsKind(err, core.KindReference) {
		return class.Class{}, class.ErrUnknownActivity
	}
	return cls, err
}

func (repo classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	return repo.getOne(ctx, psql.Select(classColumns...).
		From(schema.TableClasses).
		Where(sq.Eq{"id": id}))
}

func (repo classRepository) GetClassByName(ctx context.Context, activityID int, name string) (class.Class, error) {
	return repo.getOne(ctx, psql.Select(classColumns...).
		From(schema.TableClasses).
		Where(sq.Eq{"atividade_id": activityID, "ativa": true}).
		Where("lower(nome) = lower(?)", name).
		OrderBy("id").
		Limit(1))
}

func (repo classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter) ([]class.Class, error) {
	b := psql.Select(classColumns...).From(schema.TableClasses).OrderBy("nome", "id")
	if !filter.IncludeInactive {
		b = b.Where(sq.Eq{"ativa": true})
	}
	if filter.ActivityID != nil {
		b = b.Where(sq.Eq{"atividade_id": *filter.ActivityID})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []classRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &rows, q, args...)
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	return repo.getOne(ctx, psql.Update(schema.TableClasses).
		SetMap(classValues(c)).
		Where(sq.Eq{"id": c.ID}).
		Suffix("RETURNING " + joinColumns(classColumns)))
}

func (repo classRepository) SetClassActive(ctx context.Context, id int, active bool) (class.Class, error) {
	return repo.getOne(ctx, psql.Update(schema.TableClasses).
		Set("ativa", active).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(classColumns)))
}

func (repo classRepository) RecountClass(ctx context.Context, id int) (int, error) {
	var total int
	err := repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &total, `
			UPDATE turmas
			SET total_alunos = (SELECT COUNT(*) FROM alunos WHERE turma_id = $1 AND ativo)
			WHERE id = $1
			RETURNING total_alunos`, id)
	})
	if err != nil {
		return 0, translate(err, class.ErrNotFound)
	}
	return total, nil
}
