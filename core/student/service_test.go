package student_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/student"
	"github.com/amigodopovo/academia/storage/database/inmem"
	"github.com/amigodopovo/academia/tests"
)

func names(students []student.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.Name)
	}
	return out
}

func TestService_Create(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	act := testutil.CreateActivity(t, svcs.Activities, "Karatê")

	tests := []struct {
		name     string
		ns       student.NewStudent
		wantKind core.Kind
	}{
		{name: "minimal", ns: student.NewStudent{Name: "Ana"}},
		{name: "full", ns: student.NewStudent{
			Name: "  João Silva ", Phone: "11 9876 5432", Email: " JOAO@Mail.com ", ActivityID: &act.ID,
		}},
		{name: "blank name", ns: student.NewStudent{Name: "   "}, wantKind: core.KindValidation},
		{name: "bad email", ns: student.NewStudent{Name: "Ana", Email: "nope"}, wantKind: core.KindValidation},
		{name: "unknown activity", ns: student.NewStudent{Name: "Ana", ActivityID: core.IntPtr(999)}, wantKind: core.KindReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svcs.Students.Create(ctx, tt.ns)
			if tt.wantKind != core.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, s.ID)
			assert.True(t, s.Active)
			assert.False(t, s.CreatedAt.IsZero())
		})
	}

	got, err := svcs.Students.Search(ctx, "joão")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "João Silva", got[0].Name)
	assert.Equal(t, "1198765432", got[0].Phone)
	assert.Equal(t, "joao@mail.com", got[0].Email)
}

func TestService_Update(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)

	blank := "  "
	_, err := svcs.Students.Update(ctx, s.ID, student.UpdateStudent{Name: &blank})
	require.Error(t, err)
	assert.True(t, errors.Is(err, student.ErrEmptyName))
	assert.True(t, core.IsKind(err, core.KindValidation))

	notes := "faixa amarela"
	updated, err := svcs.Students.Update(ctx, s.ID, student.UpdateStudent{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, notes, updated.Notes)
	assert.True(t, updated.Active)

	_, err = svcs.Students.Update(ctx, 999, student.UpdateStudent{Notes: &notes})
	assert.True(t, errors.Is(err, student.ErrNotFound))
}

func TestService_SoftDelete(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	ana := testutil.CreateStudent(t, svcs.Students, "Ana", nil)
	testutil.CreateStudent(t, svcs.Students, "Bruno", nil)

	require.NoError(t, svcs.Students.SoftDelete(ctx, ana.ID))

	// hidden from the default listing, still readable by id
	got, err := svcs.Students.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno"}, names(got))

	s, err := svcs.Students.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, s.Active)

	all, err := svcs.Students.Query(ctx, student.QueryFilter{AllStatuses: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Bruno"}, names(all))

	inactive, err := svcs.Students.Query(ctx, student.QueryFilter{Active: core.BoolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(inactive))

	s, err = svcs.Students.Reactivate(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, s.Active)

	assert.True(t, errors.Is(svcs.Students.SoftDelete(ctx, 999), student.ErrNotFound))
}

func TestService_Search(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	for _, name := range []string{"José Antônio", "Maria da Conceição", "Antonia Lima"} {
		testutil.CreateStudent(t, svcs.Students, name, nil)
	}

	tests := []struct {
		term string
		want []string
	}{
		{term: "", want: []string{"Antonia Lima", "José Antônio", "Maria da Conceição"}},
		{term: "   ", want: []string{"Antonia Lima", "José Antônio", "Maria da Conceição"}},
		{term: "antonio", want: []string{"José Antônio"}},
		{term: "ANTÔN", want: []string{"Antonia Lima", "José Antônio"}},
		{term: "conceicao", want: []string{"Maria da Conceição"}},
		{term: "zzz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := svcs.Students.Search(ctx, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestService_HardDelete(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	s := testutil.CreateStudent(t, svcs.Students, "Ana", nil)
	other := testutil.CreateStudent(t, svcs.Students, "Bruno", nil)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, status := range []string{"P", "F", "J"} {
		_, err := svcs.Attendance.Record(ctx, attendance.NewRecord{StudentID: s.ID, Date: day.AddDate(0, 0, i), Status: status})
		require.NoError(t, err)
	}
	_, err := svcs.Attendance.Record(ctx, attendance.NewRecord{StudentID: other.ID, Date: day, Status: "P"})
	require.NoError(t, err)

	n, err := svcs.Students.HardDelete(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = svcs.Students.GetByID(ctx, s.ID)
	assert.True(t, errors.Is(err, student.ErrNotFound))

	left, err := svcs.Attendance.ListForStudent(ctx, other.ID, attendance.DateRange{})
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = svcs.Students.HardDelete(ctx, s.ID)
	assert.True(t, errors.Is(err, student.ErrNotFound))
}

func TestService_countCaches(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	judo := testutil.CreateActivity(t, svcs.Activities, "Judô")
	cls := testutil.CreateClass(t, svcs.Classes, judo.ID, "Judô Manhã", 0)

	counts := func(t *testing.T, wantActivity, wantClass int) {
		t.Helper()
		a, err := svcs.Activities.GetByID(ctx, judo.ID)
		require.NoError(t, err)
		c, err := svcs.Classes.GetByID(ctx, cls.ID)
		require.NoError(t, err)
		assert.Equal(t, wantActivity, a.TotalStudents, "activity cache")
		assert.Equal(t, wantClass, c.TotalStudents, "class cache")
	}

	var ids []int
	for _, name := range []string{"Ana", "Bruno", "Carla", "Davi"} {
		ids = append(ids, testutil.CreateStudent(t, svcs.Students, name, &judo.ID).ID)
	}
	counts(t, 4, 0)

	for _, id := range ids {
		_, err := svcs.Enrollment.Enroll(ctx, id, cls.ID)
		require.NoError(t, err)
	}
	counts(t, 4, 4)

	for _, id := range ids[1:] {
		require.NoError(t, svcs.Students.SoftDelete(ctx, id))
	}
	counts(t, 1, 1)

	_, err := svcs.Students.Reactivate(ctx, ids[1])
	require.NoError(t, err)
	counts(t, 2, 2)

	_, err = svcs.Students.HardDelete(ctx, ids[0])
	require.NoError(t, err)
	counts(t, 1, 1)

	direct, err := svcs.Students.Create(ctx, student.NewStudent{Name: "Eva", ActivityID: &judo.ID, ClassID: &cls.ID})
	require.NoError(t, err)
	counts(t, 2, 2)

	other := testutil.CreateActivity(t, svcs.Activities, "Ballet")
	_, err = svcs.Students.Update(ctx, direct.ID, student.UpdateStudent{ActivityID: &other.ID})
	require.NoError(t, err)
	counts(t, 1, 2)
	b, err := svcs.Activities.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, b.TotalStudents)
}

type failingRecounter struct{ calls int }

func (r *failingRecounter) Recount(context.Context, int) (int, error) {
	r.calls++
	return 0, errors.New("connection reset")
}

func TestService_recountFailureIsLogged(t *testing.T) {
	svcs := testutil.NewInmemServices(t)
	ctx := context.Background()
	act := testutil.CreateActivity(t, svcs.Activities, "Judô")
	rc := new(failingRecounter)
	svc := student.NewService(inmemdb.NewStudentRepository(svcs.DB), core.NewValidator(), svcs.Log, rc, rc)

	s, err := svc.Create(ctx, student.NewStudent{Name: "Ana", ActivityID: &act.ID})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, s.ID))

	assert.Equal(t, 2, rc.calls)
	assert.Contains(t, svcs.Log.Messages, "WARN recounting activity "+strconv.Itoa(act.ID))
}
