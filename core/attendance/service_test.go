package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/tests"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func TestService_Record(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)
	gone := testutil.CreateStudent(t, svcs.Students, "Bruno", nil)
	require.NoError(t, svcs.Students.SoftDelete(ctx, gone.ID))

	tests := []struct {
		name     string
		nr       attendance.NewRecord
		wantErr  error
		wantKind core.Kind
		wantKnd  attendance.Kind
	}{
		{name: "present, default kind", nr: attendance.NewRecord{StudentID: s.ID, Date: monday, Status: "P"}, wantKnd: attendance.KindManual},
		{name: "justified, imported", nr: attendance.NewRecord{StudentID: s.ID, Date: monday, Status: "J", Kind: "IMPORTED"}, wantKnd: attendance.KindImported},
		{name: "unknown status", nr: attendance.NewRecord{StudentID: s.ID, Date: monday, Status: "X"}, wantKind: core.KindValidation},
		{name: "lowercase status", nr: attendance.NewRecord{StudentID: s.ID, Date: monday, Status: "p"}, wantKind: core.KindValidation},
		{name: "unknown kind", nr: attendance.NewRecord{StudentID: s.ID, Date: monday, Status: "F", Kind: "BATCH"}, wantKind: core.KindValidation},
		{name: "no date", nr: attendance.NewRecord{StudentID: s.ID, Status: "P"}, wantKind: core.KindValidation},
		{name: "missing student", nr: attendance.NewRecord{StudentID: 999, Date: monday, Status: "P"}, wantErr: attendance.ErrStudentNotFound},
		{name: "inactive student", nr: attendance.NewRecord{StudentID: gone.ID, Date: monday, Status: "P"}, wantErr: attendance.ErrStudentInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := svcs.Attendance.Record(ctx, tt.nr)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "Record() error = %v, wantErr %v", err, tt.wantErr)
			case tt.wantKind != core.KindUnknown:
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, core.KindOf(err))
			default:
				require.NoError(t, err)
				assert.NotZero(t, rec.ID)
				assert.Equal(t, attendance.StudentKey(s.ID), rec.StudentID)
				assert.Equal(t, tt.wantKnd, rec.Kind)
				assert.Equal(t, monday, rec.Date)
			}
		})
	}

	// rejected records never reach the store
	records, err := svcs.Attendance.ListForStudent(ctx, s.ID, attendance.DateRange{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	none, err := svcs.Attendance.ListForStudent(ctx, gone.ID, attendance.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Record_truncatesDate(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)

	rec, err := svcs.Attendance.Record(ctx, attendance.NewRecord{StudentID: s.ID, Date: monday.Add(18 * time.Hour), Status: "F"})
	require.NoError(t, err)
	assert.Equal(t, monday, rec.Date)
}

func TestService_ListForClassOnDate(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	act := testutil.CreateActivity(t, svcs.Activities, "Judô")
	cls := testutil.CreateClass(t, svcs.Classes, act.ID, "Judô Manhã", 0)
	ana := testutil.CreateStudent(t, svcs.Students, "Ana", &act.ID)
	bruno := testutil.CreateStudent(t, svcs.Students, "Bruno", &act.ID)

	for _, nr := range []attendance.NewRecord{
		{StudentID: ana.ID, Date: monday, Status: "P", ClassID: &cls.ID},
		{StudentID: bruno.ID, Date: monday, Status: "F", ClassID: &cls.ID},
		{StudentID: ana.ID, Date: monday.AddDate(0, 0, 1), Status: "P", ClassID: &cls.ID},
		{StudentID: bruno.ID, Date: monday, Status: "P"},
	} {
		_, err := svcs.Attendance.Record(ctx, nr)
		require.NoError(t, err)
	}

	got, err := svcs.Attendance.ListForClassOnDate(ctx, cls.ID, monday.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, attendance.StudentKey(ana.ID), got[0].StudentID)
	assert.Equal(t, attendance.StudentKey(bruno.ID), got[1].StudentID)
}

func TestService_Frequency(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)

	freq, err := svcs.Attendance.Frequency(ctx, s.ID, attendance.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, freq)

	for i, status := range []string{"P", "P", "F", "J", "P"} {
		_, err = svcs.Attendance.Record(ctx, attendance.NewRecord{StudentID: s.ID, Date: monday.AddDate(0, 0, i), Status: status})
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		rng  attendance.DateRange
		want float64
	}{
		{name: "all", want: 60},
		{name: "first two days", rng: attendance.DateRange{To: monday.AddDate(0, 0, 1)}, want: 100},
		{name: "middle", rng: attendance.DateRange{From: monday.AddDate(0, 0, 2), To: monday.AddDate(0, 0, 3)}, want: 0},
		{name: "from wednesday", rng: attendance.DateRange{From: monday.AddDate(0, 0, 2)}, want: 100.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svcs.Attendance.Frequency(ctx, s.ID, tt.rng)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestService_DeleteForStudent(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)
	for i := 0; i < 3; i++ {
		_, err := svcs.Attendance.Record(ctx, attendance.NewRecord{StudentID: s.ID, Date: monday.AddDate(0, 0, i), Status: "P"})
		require.NoError(t, err)
	}

	n, err := svcs.Attendance.DeleteForStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svcs.Attendance.DeleteForStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []attendance.Status{attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusJustified} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, attendance.Status("X").Valid())
	assert.False(t, attendance.Kind("").Valid())
}
