package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core/attendance"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func (cli *commandLine) attendanceCmd(args []string) error {
	fs := cli.newFlagSet("attendance")
	studentID := fs.Int("student", 0, "Student ID.")
	date := fs.String("date", time.Now().UTC().Format(dateLayout), "Day of the record.")
	status := fs.String("status", "", "P (present), F (absent) or J (justified).")
	kind := fs.String("kind", string(attendance.KindManual), "MANUAL, IMPORTED or AUTO.")
	classID := fs.Int("class", 0, "Class ID.")
	notes := fs.String("notes", "", "Free text.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *studentID <= 0 || *status == "" {
		fs.Usage()
		return errHelp
	}
	day, err := parseDate(*date)
	if err != nil {
		return err
	}

	nr := attendance.NewRecord{
		StudentID: *studentID,
		Date:      day,
		Status:    *status,
		Kind:      *kind,
		Notes:     *notes,
	}
	if *classID > 0 {
		nr.ClassID = classID
	}

	ctx := context.Background()
	if err = cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	rec, err := cli.deps.attendance.Record(ctx, nr)
	if err != nil {
		return err
	}
	cli.ok("record %d: student %s %s on %s (%s)", rec.ID, rec.StudentID, rec.Status, rec.Date.Format(dateLayout), rec.Kind)
	return nil
}

func (cli *commandLine) frequencyCmd(args []string) error {
	fs := cli.newFlagSet("frequency")
	studentID := fs.Int("student", 0, "Student ID.")
	from := fs.String("from", "", "First day, inclusive.")
	to := fs.String("to", "", "Last day, inclusive.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *studentID <= 0 {
		fs.Usage()
		return errHelp
	}

	var (
		rng attendance.DateRange
		err error
	)
	if rng.From, err = parseDate(*from); err != nil {
		return err
	}
	if rng.To, err = parseDate(*to); err != nil {
		return err
	}

	ctx := context.Background()
	if err = cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}
	records, err := cli.deps.attendance.ListForStudent(ctx, *studentID, rng)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(cli.out, "%s\t%s\t%s\n", r.Date.Format(dateLayout), r.Status, r.Kind)
	}
	fmt.Fprintf(cli.out, "student %d: %.1f%% present over %d record(s)\n", *studentID, attendance.Frequency(records), len(records))
	return nil
}
