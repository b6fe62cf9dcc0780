package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/schema"
)

var activityColumns = []string{
	"id", "nome", "descricao", "professores_vinculados", "total_alunos", "ativa", "data_criacao",
}

type activityRow struct {
	ID            int         `db:"id"`
	Name          string      `db:"nome"`
	Description   null.String `db:"descricao"`
	BoundTeachers null.String `db:"professores_vinculados"`
	TotalStudents null.Int    `db:"total_alunos"`
	Active        null.Bool   `db:"ativa"`
	CreatedAt     null.Time   `db:"data_criacao"`
}

func (r activityRow) toActivity() activity.Activity {
	return activity.Activity{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description.String,
		BoundTeachers: r.BoundTeachers.String,
		TotalStudents: r.TotalStudents.Int,
		Active:        r.Active.Bool,
		CreatedAt:     r.CreatedAt.Time,
	}
}

type activityRepository struct {
	db core.DBProvider
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db core.DBProvider) *activityRepository {
	return &activityRepository{db: db}
}

// getOne runs b and maps unique violations on the active name index to activity.ErrNameExists.
func (repo activityRepository) getOne(ctx context.Context, b sq.Sqlizer) (activity.Activity, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return activity.Activity{}, err
	}
	var row activityRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &row, q, args...)
	})
	if err != nil {
		if pqCode(err) == "23505" {
			return activity.Activity{}, activity.ErrNameExists
		}
		return activity.Activity{}, translate(err, activity.ErrNotFound)
	}
	return row.toActivity(), nil
}

func (repo activityRepository) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Insert(schema.TableActivities).
		SetMap(map[string]interface{}{
			"nome":                   a.Name,
			"descricao":              null.NewString(a.Description, a.Description != ""),
			"professores_vinculados": null.NewString(a.BoundTeachers, a.BoundTeachers != ""),
			"total_alunos":           a.TotalStudents,
			"ativa":                  a.Active,
			"data_criacao":           a.CreatedAt.UTC(),
		}).
		Suffix("RETURNING " + joinColumns(activityColumns)))
}

func (repo activityRepository) GetActivityByID(ctx context.Context, id int) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Select(activityColumns...).
		From(schema.TableActivities).
		Where(sq.Eq{"id": id}))
}

func (repo activityRepository) GetActivityByName(ctx context.Context, name string) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Select(activityColumns...).
		From(schema.TableActivities).
		Where("lower(nome) = lower(?)", name).
		Where(sq.Eq{"ativa": true}).
		OrderBy("id").
		Limit(1))
}

func (repo activityRepository) QueryActivities(ctx context.Context, includeInactive bool) ([]activity.Activity, error) {
	b := psql.Select(activityColumns...).From(schema.TableActivities).OrderBy("nome", "id")
	if !includeInactive {
		b = b.Where(sq.Eq{"ativa": true})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []activityRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &rows, q, args...)
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	acts := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		acts = append(acts, r.toActivity())
	}
	return acts, nil
}

func (repo activityRepository) UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Update(schema.TableActivities).
		Set("nome", a.Name).
		Set("descricao", null.NewString(a.Description, a.Description != "")).
		Where(sq.Eq{"id": a.ID}).
		Suffix("RETURNING " + joinColumns(activityColumns)))
}

func (repo activityRepository) SetActivityActive(ctx context.Context, id int, active bool) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Update(schema.TableActivities).
		Set("ativa", active).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(activityColumns)))
}

func (repo activityRepository) SetBoundTeachers(ctx context.Context, id int, descriptor string) (activity.Activity, error) {
	return repo.getOne(ctx, psql.Update(schema.TableActivities).
		Set("professores_vinculados", null.NewString(descriptor, descriptor != "")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(activityColumns)))
}

func (repo activityRepository) RecountActivity(ctx context.Context, id int) (int, error) {
	var total int
	err := repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &total, `
			UPDATE atividades
			SET total_alunos = (SELECT COUNT(*) FROM alunos WHERE atividade_id = $1 AND ativo)
			WHERE id = $1
			RETURNING total_alunos`, id)
	})
	if err != nil {
		return 0, translate(err, activity.ErrNotFound)
	}
	return total, nil
}
