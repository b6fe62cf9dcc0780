package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/schema"
)

// Catalog reads information_schema of the current schema and applies column deltas.
type Catalog struct {
	db core.DBProvider
}

var _ schema.Catalog = (*Catalog)(nil) // interface compliance check

func NewCatalog(db core.DBProvider) *Catalog {
	return &Catalog{db: db}
}

type columnRow struct {
	Name      string      `db:"column_name"`
	DataType  string      `db:"data_type"`
	MaxLength null.Int    `db:"character_maximum_length"`
	Nullable  string      `db:"is_nullable"`
	Default   null.String `db:"column_default"`
}

func (r columnRow) toColumn() schema.Column {
	dt := r.DataType
	if r.MaxLength.Valid {
		dt += "(" + strconv.Itoa(r.MaxLength.Int) + ")"
	}
	return schema.Column{
		Name:     r.Name,
		DataType: dt,
		Nullable: r.Nullable == "YES",
		Default:  r.Default.String,
	}
}

func (cat *Catalog) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := cat.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
			)`, strings.ToLower(table), strings.ToLower(column))
	})
	if err != nil {
		return false, translate(err, nil)
	}
	return exists, nil
}

func (cat *Catalog) ListColumns(ctx context.Context, table string) ([]schema.Column, error) {
	var rows []columnRow
	err := cat.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &rows, `
			SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`, strings.ToLower(table))
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	cols := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, r.toColumn())
	}
	return cols, nil
}

func (cat *Catalog) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := cat.db.WithConn(ctx, func(exec core.DBExecutor) error {
		return exec.SelectContext(ctx, &tables, `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`)
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	return tables, nil
}

// AddColumn runs the ALTER TABLE on its own connection, in autocommit mode.
// A column added by someone else in the meantime yields schema.ErrColumnExists.
func (cat *Catalog) AddColumn(ctx context.Context, d schema.Delta) error {
	stmt := "ALTER TABLE " + pq.QuoteIdentifier(d.Table) +
		" ADD COLUMN " + pq.QuoteIdentifier(d.Column) + " " + d.Definition
	err := cat.db.WithConn(ctx, func(exec core.DBExecutor) error {
		_, err := exec.ExecContext(ctx, stmt)
		return err
	})
	if pqCode(err) == "42701" { // duplicate_column
		return errors.WithMessage(schema.ErrColumnExists, err.Error())
	}
	return translate(err, nil)
}
