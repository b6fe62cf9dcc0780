package sqlxrepos

import (
	"context"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/schema"
)

var attendanceColumns = []string{
	"id", "aluno_id::text AS aluno_id", "data_presenca", "status", "tipo_registro",
	"turma_id", "observacoes", "data_registro",
}

type attendanceRow struct {
	ID         int         `db:"id"`
	StudentID  string      `db:"aluno_id"`
	Date       time.Time   `db:"data_presenca"`
	Status     null.String `db:"status"`
	Kind       null.String `db:"tipo_registro"`
	ClassID    null.Int    `db:"turma_id"`
	Notes      null.String `db:"observacoes"`
	RecordedAt null.Time   `db:"data_registro"`
}

func (r attendanceRow) toRecord() attendance.Record {
	kind := attendance.Kind(r.Kind.String)
	if !r.Kind.Valid {
		kind = attendance.KindManual
	}
	return attendance.Record{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Date:       attendance.Day(r.Date),
		Status:     attendance.Status(r.Status.String),
		Kind:       kind,
		ClassID:    r.ClassID.Ptr(),
		Notes:      r.Notes.String,
		RecordedAt: r.RecordedAt.Time,
	}
}

type attendanceRepository struct {
	db core.DBProvider
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DBProvider) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// InsertRecord locks the student row (FOR SHARE) so a concurrent hard delete cannot orphan the record.
func (repo attendanceRepository) InsertRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	studentID, err := strconv.Atoi(r.StudentID)
	if err != nil {
		return attendance.Record{}, attendance.ErrStudentNotFound
	}

	q, args, err := psql.Insert(schema.TableAttendance).
		SetMap(map[string]interface{}{
			"aluno_id":      r.StudentID,
			"data_presenca": r.Date,
			"status":        string(r.Status),
			"tipo_registro": string(r.Kind),
			"turma_id":      null.IntFromPtr(r.ClassID),
			"observacoes":   null.NewString(r.Notes, r.Notes != ""),
			"data_registro": r.RecordedAt.UTC(),
		}).
		Suffix("RETURNING " + joinColumns(attendanceColumns)).
		ToSql()
	if err != nil {
		return attendance.Record{}, err
	}

	var row attendanceRow
	err = repo.db.WithTx(ctx, nil, func(tx core.DBExecutor) error {
		var active bool
		if err := tx.GetContext(ctx, &active, "SELECT ativo FROM alunos WHERE id = $1 FOR SHARE", studentID); err != nil {
			return translate(err, attendance.ErrStudentNotFound)
		}
		if !active {
			return attendance.ErrStudentInactive
		}
		return translate(tx.GetContext(ctx, &row, q, args...), nil)
	})
	if err != nil {
		return attendance.Record{}, err
	}
	return row.toRecord(), nil
}

func (repo attendanceRepository) query(ctx context.Context, b sq.SelectBuilder) ([]attendance.Record, error) {
	q, args, err := b.OrderBy("data_presenca", "id").ToSql()
	if err != nil {
		return nil, err
	}
	var rows []attendanceRow
	err = repo.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &rows, q, args...)
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

func (repo attendanceRepository) ListForStudent(ctx context.Context, studentID string, rng attendance.DateRange) ([]attendance.Record, error) {
	b := psql.Select(attendanceColumns...).
		From(schema.TableAttendance).
		Where("aluno_id::text = ?", studentID)
	if !rng.From.IsZero() {
		b = b.Where(sq.GtOrEq{"data_presenca": attendance.Day(rng.From)})
	}
	if !rng.To.IsZero() {
		b = b.Where(sq.LtOrEq{"data_presenca": attendance.Day(rng.To)})
	}
	return repo.query(ctx, b)
}

func (repo attendanceRepository) ListForClassOnDate(ctx context.Context, classID int, date time.Time) ([]attendance.Record, error) {
	return repo.query(ctx, psql.Select(attendanceColumns...).
		From(schema.TableAttendance).
		Where(sq.Eq{"turma_id": classID, "data_presenca": attendance.Day(date)}))
}

func (repo attendanceRepository) DeleteForStudent(ctx context.Context, studentID string) (int, error) {
	var n int
	err := repo.db.WithConn(ctx, func(exec core.DBExecutor) (err error) {
		n, err = deleteAttendance(ctx, exec, studentID)
		return err
	})
	return n, err
}

// deleteAttendance removes every record of the student, comparing the textual form of aluno_id.
func deleteAttendance(ctx context.Context, exec core.DBExecutor, studentID string) (int, error) {
	res, err := exec.ExecContext(ctx, "DELETE FROM presencas WHERE aluno_id::text = $1", studentID)
	if err != nil {
		return 0, translate(err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(err, nil)
	}
	return int(n), nil
}
