package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/enrollment"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/core/student"
	"github.com/amigodopovo/academia/storage/database"
	"github.com/amigodopovo/academia/storage/database/sqlx"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// services used by the commands, built on first use
type deps struct {
	catalog    schema.Catalog
	students   student.Service
	activities activity.Service
	classes    class.Service
	attendance attendance.Service
	enrollment enrollment.Service
}

type commandLine struct {
	conf *core.Config
	log  core.Logger
	out  io.Writer
	op   core.Operator

	askPassword bool
	db          *database.Provider
	deps        *deps
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: admin [-W] [-operator NAME] [-role ROLE] COMMAND [flags]")
	fmt.Fprintln(cli.out, "  -W - prompt for the database password")
	fmt.Fprintln(cli.out, "  -role - admin_master, admin or usuario (hard deletes need an admin role)")
	fmt.Fprintln(cli.out, "Schema:")
	fmt.Fprintln(cli.out, "  migrate - add every missing column, then print the shape of the touched tables")
	fmt.Fprintln(cli.out, "  verify-schema - report the columns missing from the expected schema")
	fmt.Fprintln(cli.out, "  fix-presencas - add the missing presencas columns only")
	fmt.Fprintln(cli.out, "  baseline COMMAND [args] - run a goose command (up, down, status, version...) on the baseline tables")
	fmt.Fprintln(cli.out, "  createdb - create the app role and database with the admin credentials")
	fmt.Fprintln(cli.out, "Students:")
	fmt.Fprintln(cli.out, "  import -file FILE [-create-missing] - import students from a CSV file")
	fmt.Fprintln(cli.out, "  students [-search TERM] [-all] - list students")
	fmt.Fprintln(cli.out, "  enroll -student ID -class ID - put a student in a class")
	fmt.Fprintln(cli.out, "  transfer -student ID -class ID - move an enrolled student to another class")
	fmt.Fprintln(cli.out, "  delete-student -id ID [-hard] - deactivate (or delete, with attendance) a student")
	fmt.Fprintln(cli.out, "  reactivate -id ID - reactivate a student")
	fmt.Fprintln(cli.out, "  recount [-activity ID] [-class ID] - refresh the total_alunos caches")
	fmt.Fprintln(cli.out, "Attendance:")
	fmt.Fprintln(cli.out, "  attendance -student ID -date YYYY-MM-DD -status P|F|J [-kind KIND] [-class ID] - record attendance")
	fmt.Fprintln(cli.out, "  frequency -student ID [-from YYYY-MM-DD] [-to YYYY-MM-DD] - percentage of presences")
}

func (cli *commandLine) run(args []string) error {
	global := flag.NewFlagSet("admin", flag.ContinueOnError)
	global.SetOutput(cli.out)
	global.BoolVar(&cli.askPassword, "W", false, "Prompt for the database password.")
	operator := global.String("operator", os.Getenv("USER"), "Name recorded as the author of created rows.")
	role := global.String("role", core.RoleAdmin, "Operator role: admin_master, admin or usuario.")
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	if err := global.Parse(args[1:]); err != nil {
		return errHelp
	}
	cli.op = core.Operator{Name: core.CleanString(*operator), Role: core.CleanString(*role, true /* lower */)}
	if !cli.op.ValidRole() {
		fmt.Fprintf(cli.out, "unknown role %q\n", *role)
		return errHelp
	}

	rest := global.Args()
	if len(rest) == 0 {
		cli.printUsage()
		return errHelp
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "migrate":
		return cli.migrate(schema.Deltas)
	case "fix-presencas":
		return cli.migrate(schema.DeltasFor(schema.TableAttendance))
	case "verify-schema":
		return cli.verifySchema()
	case "baseline":
		if len(cmdArgs) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.baseline(cmdArgs)
	case "createdb":
		return cli.createDB()
	case "import":
		return cli.importCmd(cmdArgs)
	case "students":
		return cli.studentsCmd(cmdArgs)
	case "enroll", "transfer":
		return cli.enrollCmd(cmd, cmdArgs)
	case "delete-student":
		return cli.deleteStudentCmd(cmdArgs)
	case "reactivate":
		return cli.reactivateCmd(cmdArgs)
	case "recount":
		return cli.recountCmd(cmdArgs)
	case "attendance":
		return cli.attendanceCmd(cmdArgs)
	case "frequency":
		return cli.frequencyCmd(cmdArgs)
	default:
		cli.printUsage()
		return errHelp
	}
}

// newFlagSet returns a flag set whose parse errors and -h end in errHelp.
func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	return nil
}

// connect opens the pool and waits for the store.
func (cli *commandLine) connect(ctx context.Context) error {
	if cli.db != nil {
		return nil
	}
	if cli.askPassword {
		if err := cli.promptPassword(); err != nil {
			return err
		}
	}

	db, err := database.Open(cli.conf)
	if err != nil {
		return err
	}
	if err = db.Ping(ctx); err != nil {
		_ = db.Close()
		return err
	}
	cli.db = db
	return nil
}

// promptPassword reads a password from the terminal, used for both the app and admin credentials.
func (cli *commandLine) promptPassword() error {
	fmt.Fprint(cli.out, "Enter database password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	cli.conf.Database.Password = string(pwd)
	cli.conf.Database.AdminPassword = string(pwd)
	return nil
}

// setup builds the services on top of PostgreSQL, unless they were provided.
func (cli *commandLine) setup(ctx context.Context) error {
	if cli.deps != nil {
		return nil
	}
	if err := cli.connect(ctx); err != nil {
		return err
	}

	validate := core.NewValidator()
	activities := activity.NewService(sqlxrepos.NewActivityRepository(cli.db), validate)
	classes := class.NewService(sqlxrepos.NewClassRepository(cli.db), validate)
	students := student.NewService(sqlxrepos.NewStudentRepository(cli.db), validate, cli.log, activities, classes)
	cli.deps = &deps{
		catalog:    sqlxrepos.NewCatalog(cli.db),
		students:   students,
		activities: activities,
		classes:    classes,
		attendance: attendance.NewService(sqlxrepos.NewAttendanceRepository(cli.db), validate),
		enrollment: enrollment.NewService(sqlxrepos.NewEnrollmentRepository(cli.db), students, activities, classes, cli.log),
	}
	return nil
}

// sqlDB is nil when the commands run on provided services.
func (cli *commandLine) sqlDB() *sql.DB {
	if cli.db == nil {
		return nil
	}
	return cli.db.DB()
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
	}
}

func (cli *commandLine) ok(format string, args ...interface{}) {
	fmt.Fprintf(cli.out, "✅ "+format+"\n", args...)
}

func (cli *commandLine) fail(format string, args ...interface{}) {
	fmt.Fprintf(cli.out, "❌ "+format+"\n", args...)
}
