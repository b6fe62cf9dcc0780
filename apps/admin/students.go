package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/enrollment"
	"github.com/amigodopovo/academia/core/student"
)

func (cli *commandLine) importCmd(args []string) error {
	fs := cli.newFlagSet("import")
	file := fs.String("file", "", "CSV file with a header row (nome, atividade, telefone, email, endereco, data_nascimento, turma, observacoes).")
	createMissing := fs.Bool("create-missing", false, "Create unknown activities and classes.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errHelp
	}

	f, err := os.Open(*file)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer f.Close()

	rows, err := enrollment.ParseCSV(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err = cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	sum, err := cli.deps.enrollment.BulkImport(ctx, rows, enrollment.ImportOptions{
		CreateMissing: *createMissing,
		CreatedBy:     cli.op.Name,
	})
	for _, res := range sum.Results {
		switch {
		case res.OK():
			cli.ok("line %d: student %d", res.Row, res.ID)
		case res.Err != nil:
			cli.fail("line %d: %s: %v", res.Row, res.Reason, res.Err)
		default:
			cli.fail("line %d: %s", res.Row, res.Reason)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "batch %s: %d imported, %d failed\n", sum.BatchID, sum.Imported(), sum.Failed())
	if sum.Failed() > 0 {
		return errors.Errorf("%d row(s) failed", sum.Failed())
	}
	return nil
}

func (cli *commandLine) studentsCmd(args []string) error {
	fs := cli.newFlagSet("students")
	search := fs.String("search", "", "Case and accent insensitive part of the name.")
	all := fs.Bool("all", false, "Include inactive students.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	students, err := cli.deps.students.Query(ctx, student.QueryFilter{Search: *search, AllStatuses: *all})
	if err != nil {
		return err
	}
	for _, s := range students {
		state := "active"
		if !s.Active {
			state = "inactive"
		}
		fmt.Fprintf(cli.out, "%d\t%s\t%s\t%s\n", s.ID, s.Name, placement(s), state)
	}
	fmt.Fprintf(cli.out, "%d student(s)\n", len(students))
	return nil
}

func placement(s student.Student) string {
	switch {
	case s.ClassID != nil:
		return fmt.Sprintf("class %d", *s.ClassID)
	case s.ActivityID != nil:
		return fmt.Sprintf("activity %d", *s.ActivityID)
	default:
		return "-"
	}
}

func (cli *commandLine) enrollCmd(cmd string, args []string) error {
	fs := cli.newFlagSet(cmd)
	studentID := fs.Int("student", 0, "Student ID.")
	classID := fs.Int("class", 0, "Target class ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *studentID <= 0 || *classID <= 0 {
		fs.Usage()
		return errHelp
	}

	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}

	var (
		asg enrollment.Assignment
		err error
	)
	if cmd == "transfer" {
		asg, err = cli.deps.enrollment.Transfer(ctx, *studentID, *classID)
	} else {
		asg, err = cli.deps.enrollment.Enroll(ctx, *studentID, *classID)
	}
	if err != nil {
		return err
	}
	cli.ok("student %d is in class %d (activity %d)", asg.StudentID, asg.ClassID, asg.ActivityID)
	return nil
}

func (cli *commandLine) deleteStudentCmd(args []string) error {
	fs := cli.newFlagSet("delete-student")
	id := fs.Int("id", 0, "Student ID.")
	hard := fs.Bool("hard", false, "Remove the student and its attendance records instead of deactivating.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		fs.Usage()
		return errHelp
	}
	if *hard && !cli.op.IsAdmin() {
		return errors.Errorf("role %s may not hard delete students", cli.op.Role)
	}

	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	if !*hard {
		if err := cli.deps.students.SoftDelete(ctx, *id); err != nil {
			return err
		}
		cli.ok("student %d deactivated", *id)
		return nil
	}

	n, err := cli.deps.students.HardDelete(ctx, *id)
	if err != nil {
		return err
	}
	cli.log.Info(fmt.Sprintf("student %d deleted with %d attendance record(s)", *id, n), cli.op)
	cli.ok("student %d deleted, %d attendance record(s) removed", *id, n)
	return nil
}

func (cli *commandLine) reactivateCmd(args []string) error {
	fs := cli.newFlagSet("reactivate")
	id := fs.Int("id", 0, "Student ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		fs.Usage()
		return errHelp
	}

	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	s, err := cli.deps.students.Reactivate(ctx, *id)
	if err != nil {
		return err
	}
	cli.ok("student %d (%s) reactivated", s.ID, s.Name)
	return nil
}

func (cli *commandLine) recountCmd(args []string) error {
	fs := cli.newFlagSet("recount")
	activityID := fs.Int("activity", 0, "Activity ID.")
	classID := fs.Int("class", 0, "Class ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}

	var activityIDs, classIDs []int
	switch {
	case *activityID > 0 || *classID > 0:
		if *activityID > 0 {
			activityIDs = append(activityIDs, *activityID)
		}
		if *classID > 0 {
			classIDs = append(classIDs, *classID)
		}
	default:
		activities, err := cli.deps.activities.Query(ctx, false)
		if err != nil {
			return err
		}
		for _, a := range activities {
			activityIDs = append(activityIDs, a.ID)
		}
		classes, err := cli.deps.classes.Query(ctx, class.QueryFilter{})
		if err != nil {
			return err
		}
		for _, c := range classes {
			classIDs = append(classIDs, c.ID)
		}
	}

	for _, id := range activityIDs {
		n, err := cli.deps.activities.Recount(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "recounting activity %d", id)
		}
		cli.ok("activity %d: %d student(s)", id, n)
	}
	for _, id := range classIDs {
		n, err := cli.deps.classes.Recount(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "recounting class %d", id)
		}
		cli.ok("class %d: %d student(s)", id, n)
	}
	return nil
}
