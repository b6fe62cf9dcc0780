package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/storage/database/inmem"
	"github.com/amigodopovo/academia/tests"
)

func setup(t *testing.T) (*inmemdb.DB, *schema.Migrator) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return db, schema.NewMigrator(inmemdb.NewCatalog(db), testutil.NewLogger(t))
}

func statuses(rep schema.Report) map[string]schema.Status {
	out := make(map[string]schema.Status, len(rep.Results))
	for _, res := range rep.Results {
		out[res.Delta.String()] = res.Status
	}
	return out
}

func TestMigrator_Run_fresh(t *testing.T) {
	_, m := setup(t)
	ctx := context.Background()

	rep, err := m.Run(ctx, schema.Deltas)
	require.NoError(t, err)
	assert.Equal(t, len(schema.Deltas), rep.Applied())
	assert.Zero(t, rep.Skipped())

	// one shape per touched table, in delta order
	require.Len(t, rep.Shapes, 3)
	assert.Equal(t, schema.TableClasses, rep.Shapes[0].Table)
	assert.Equal(t, schema.TableActivities, rep.Shapes[1].Table)
	assert.Equal(t, schema.TableAttendance, rep.Shapes[2].Table)
	assert.Len(t, rep.Shapes[2].Columns, len(schema.BaselineColumns(schema.TableAttendance))+2)

	// second run is a no-op
	rep, err = m.Run(ctx, schema.Deltas)
	require.NoError(t, err)
	assert.Zero(t, rep.Applied())
	assert.Equal(t, len(schema.Deltas), rep.Skipped())
}

func TestMigrator_Run_partialSchema(t *testing.T) {
	db, m := setup(t)
	db.AddColumnManually(schema.TableClasses, schema.Column{Name: "period", DataType: "character varying(20)", Nullable: true})

	rep, err := m.Run(context.Background(), schema.Deltas)
	require.NoError(t, err)

	got := statuses(rep)
	assert.Equal(t, schema.StatusSkipped, got["turmas.period"])
	assert.Equal(t, schema.StatusApplied, got["turmas.capacidade_maxima"])
	assert.Equal(t, len(schema.Deltas)-1, rep.Applied())
}

func TestMigrator_Run_failureAborts(t *testing.T) {
	db, m := setup(t)
	boom := core.NewError(core.KindSchema, `pq: type "nope" does not exist`)
	db.FailAddColumn(schema.TableClasses, "professor_responsavel", boom)

	rep, err := m.Run(context.Background(), schema.Deltas)
	require.Error(t, err)
	assert.Equal(t, boom, err)

	require.Len(t, rep.Results, 3)
	assert.Equal(t, schema.StatusApplied, rep.Results[0].Status)
	assert.Equal(t, schema.StatusApplied, rep.Results[1].Status)
	failed, ok := rep.Failed()
	require.True(t, ok)
	assert.Equal(t, "turmas.professor_responsavel", failed.Delta.String())

	// later deltas were not attempted
	v, err := m.Verify(context.Background(), schema.ExpectedColumns())
	require.NoError(t, err)
	assert.Contains(t, v.Missing[schema.TableAttendance], "status")
	assert.Contains(t, v.Missing[schema.TableActivities], "total_alunos")

	// shapes are still reported for a schema failure
	assert.NotEmpty(t, rep.Shapes)
}

func TestMigrator_Run_concurrentAdd(t *testing.T) {
	db, m := setup(t)
	db.FailAddColumn(schema.TableAttendance, "status", schema.ErrColumnExists)

	rep, err := m.Run(context.Background(), schema.DeltasFor(schema.TableAttendance))
	require.NoError(t, err)
	got := statuses(rep)
	assert.Equal(t, schema.StatusSkipped, got["presencas.status"])
	assert.Equal(t, schema.StatusApplied, got["presencas.tipo_registro"])
}

func TestMigrator_Run_unreachable(t *testing.T) {
	db, m := setup(t)
	connErr := core.NewError(core.KindTransientConnect, "dial tcp 127.0.0.1:5432: connect: connection refused")
	db.SetUnreachable(connErr)

	rep, err := m.Run(context.Background(), schema.Deltas)
	assert.Equal(t, connErr, err)
	assert.True(t, core.IsKind(err, core.KindTransientConnect))
	assert.Empty(t, rep.Results)
	assert.Empty(t, rep.Shapes)

	// nothing changed
	db.SetUnreachable(nil)
	v, err := m.Verify(context.Background(), schema.ExpectedColumns())
	require.NoError(t, err)
	assert.Len(t, v.Missing[schema.TableClasses], 6)
}

func TestMigrator_Run_missingTable(t *testing.T) {
	db, m := setup(t)
	db.DropTable(schema.TableAttendance)

	rep, err := m.Run(context.Background(), schema.DeltasFor(schema.TableAttendance))
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindSchema))
	failed, ok := rep.Failed()
	require.True(t, ok)
	assert.Equal(t, "presencas.status", failed.Delta.String())
}

func TestMigrator_Verify(t *testing.T) {
	db, m := setup(t)
	ctx := context.Background()

	v, err := m.Verify(ctx, schema.ExpectedColumns())
	require.NoError(t, err)
	assert.False(t, v.OK())
	assert.Equal(t, []string{"status", "tipo_registro"}, v.Missing[schema.TableAttendance])
	assert.Empty(t, v.Missing[schema.TableStudents])

	db.ApplyAll()
	v, err = m.Verify(ctx, schema.ExpectedColumns())
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.Len(t, v.Actual[schema.TableActivities], 7)
}

func TestDeltasFor(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
		want   []string
	}{
		{name: "none"},
		{name: "attendance", tables: []string{"presencas"}, want: []string{"presencas.status", "presencas.tipo_registro"}},
		{name: "case insensitive", tables: []string{"ATIVIDADES"}, want: []string{"atividades.professores_vinculados", "atividades.total_alunos"}},
		{name: "unknown", tables: []string{"professores"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range schema.DeltasFor(tt.tables...) {
				got = append(got, d.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
