package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/enrollment"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/core/student"
	"github.com/amigodopovo/academia/storage/database"
	"github.com/amigodopovo/academia/storage/database/inmem"
	"github.com/amigodopovo/academia/storage/database/sqlx"
)

// Logger writes every entry to the test log and keeps the messages for assertions.
type Logger struct {
	t        testing.TB
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger {
	return &Logger{t: t}
}

func (l *Logger) write(level, msg string, args []interface{}) {
	l.Messages = append(l.Messages, level+" "+msg)
	l.t.Log(append([]interface{}{level, msg}, args...)...)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.write("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.write("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.write("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.write("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.write("FATAL", msg, args)
	l.t.FailNow()
}

// Services bundles the domain services on top of one in-memory store.
type Services struct {
	DB         *inmemdb.DB
	Log        *Logger
	Students   student.Service
	Activities activity.Service
	Classes    class.Service
	Attendance attendance.Service
	Enrollment enrollment.Service
}

func NewInmemServices(t testing.TB) *Services {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	db.ApplyAll()

	log := NewLogger(t)
	validate := core.NewValidator()
	activities := activity.NewService(inmemdb.NewActivityRepository(db), validate)
	classes := class.NewService(inmemdb.NewClassRepository(db), validate)
	students := student.NewService(inmemdb.NewStudentRepository(db), validate, log, activities, classes)
	return &Services{
		DB:         db,
		Log:        log,
		Students:   students,
		Activities: activities,
		Classes:    classes,
		Attendance: attendance.NewService(inmemdb.NewAttendanceRepository(db), validate),
		Enrollment: enrollment.NewService(inmemdb.NewEnrollmentRepository(db), students, activities, classes, log),
	}
}

func CreateActivity(t testing.TB, svc activity.Service, name string) activity.Activity {
	a, err := svc.Create(context.Background(), activity.NewActivity{Name: name})
	if err != nil {
		t.Fatalf("CreateActivity(%q) failed: %v", name, err)
	}
	return a
}

func CreateClass(t testing.TB, svc class.Service, activityID int, name string, maxCapacity int) class.Class {
	c, err := svc.Create(context.Background(), class.NewClass{
		Name:        name,
		ActivityID:  activityID,
		Period:      class.PeriodMorning,
		MaxCapacity: maxCapacity,
	})
	if err != nil {
		t.Fatalf("CreateClass(%q) failed: %v", name, err)
	}
	return c
}

func CreateStudent(t testing.TB, svc student.Service, name string, activityID *int) student.Student {
	s, err := svc.Create(context.Background(), student.NewStudent{Name: name, ActivityID: activityID})
	if err != nil {
		t.Fatalf("CreateStudent(%q) failed: %v", name, err)
	}
	return s
}

// PrepareDB connects to TEST_DATABASE_URL, brings the schema up to date and empties the tables.
// The test is skipped when the variable is not set.
func PrepareDB(t testing.TB) *database.Provider {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	prov := database.NewProvider(db)
	t.Cleanup(func() { _ = prov.Close() })

	if err = prov.Ping(context.Background()); err != nil {
		t.Fatalf("pinging test database: %v", err)
	}
	if err = database.Baseline(prov.DB()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	if _, err = schema.NewMigrator(sqlxrepos.NewCatalog(prov), NewLogger(t)).Run(context.Background(), schema.Deltas); err != nil {
		t.Fatalf("adding schema deltas: %v", err)
	}

	if _, err = db.Exec("TRUNCATE presencas, alunos, turmas, atividades RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("emptying test database: %v", err)
	}
	return prov
}
