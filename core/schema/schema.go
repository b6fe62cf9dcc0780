package schema

import (
	"context"
	"strings"

	"github.com/amigodopovo/academia/core"
)

// Table names of the store.
const (
	TableStudents   = "alunos"
	TableActivities = "atividades"
	TableClasses    = "turmas"
	TableAttendance = "presencas"
)

// ErrColumnExists is returned by a Catalog when a column being added is already present.
var ErrColumnExists = core.NewError(core.KindSchema, "column already exists")

type (
	// Column is one column of a table, as read from the catalog.
	Column struct {
		Name     string
		DataType string
		Nullable bool
		Default  string // empty when the column has no default
	}

	// Delta is one idempotent schema change: add Column to Table when missing.
	Delta struct {
		Table  string
		Column string
		// Definition is everything following the column name in ADD COLUMN
		// (type, default, check constraint).
		Definition string
	}

	// Introspector reads the catalog. It never fails for missing tables: absence reads as empty.
	Introspector interface {
		ColumnExists(ctx context.Context, table, column string) (bool, error)
		ListColumns(ctx context.Context, table string) ([]Column, error)
		ListTables(ctx context.Context) ([]string, error)
	}

	// Catalog is an Introspector that can also apply a Delta, committing it on success.
	Catalog interface {
		Introspector
		AddColumn(ctx context.Context, d Delta) error
	}
)

func (d Delta) String() string {
	return d.Table + "." + d.Column
}

// Deltas is the ordered list of columns added on top of the baseline tables.
// Order matters: a failure aborts every delta after it.
var Deltas = []Delta{
	{Table: TableClasses, Column: "period", Definition: "VARCHAR(20)"},
	{Table: TableClasses, Column: "capacidade_maxima", Definition: "INTEGER DEFAULT 20"},
	{Table: TableClasses, Column: "professor_responsavel", Definition: "INTEGER"},
	{Table: TableClasses, Column: "criado_por", Definition: "VARCHAR(50)"},
	{Table: TableClasses, Column: "total_alunos", Definition: "INTEGER DEFAULT 0"},
	{Table: TableClasses, Column: "descricao", Definition: "TEXT"},
	{Table: TableActivities, Column: "professores_vinculados", Definition: "TEXT"},
	{Table: TableActivities, Column: "total_alunos", Definition: "INTEGER DEFAULT 0"},
	{Table: TableAttendance, Column: "status", Definition: "VARCHAR(10) CHECK (status IN ('P', 'F', 'J'))"},
	{Table: TableAttendance, Column: "tipo_registro", Definition: "VARCHAR(20) DEFAULT 'MANUAL'"},
}

// baseline lists the columns every table has before any delta is applied.
var baseline = map[string][]string{
	TableStudents: {
		"id", "nome", "telefone", "email", "endereco", "data_nascimento",
		"observacoes", "atividade_id", "turma_id", "ativo", "data_criacao",
	},
	TableActivities: {"id", "nome", "descricao", "ativa", "data_criacao"},
	TableClasses:    {"id", "nome", "atividade_id", "horario", "dias_semana", "ativa", "data_criacao"},
	TableAttendance: {"id", "aluno_id", "data_presenca", "turma_id", "observacoes", "data_registro"},
}

// Tables returns the managed table names, in creation order.
func Tables() []string {
	return []string{TableActivities, TableClasses, TableStudents, TableAttendance}
}

// BaselineColumns returns the pre-delta columns of table.
func BaselineColumns(table string) []string {
	return append([]string(nil), baseline[table]...)
}

// DeltasFor returns the deltas touching one of tables, in migration order.
func DeltasFor(tables ...string) []Delta {
	var out []Delta
	for _, d := range Deltas {
		for _, t := range tables {
			if strings.EqualFold(d.Table, t) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// ExpectedColumns maps each table to the columns it must have once fully migrated.
func ExpectedColumns() map[string][]string {
	expected := make(map[string][]string, len(baseline))
	for table, cols := range baseline {
		expected[table] = append([]string(nil), cols...)
	}
	for _, d := range Deltas {
		expected[d.Table] = append(expected[d.Table], d.Column)
	}
	return expected
}
