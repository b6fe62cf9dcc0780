package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/trezcool/goose"

	"github.com/amigodopovo/academia/core/schema"
	appfs "github.com/amigodopovo/academia/fs"
	"github.com/amigodopovo/academia/storage/database"
)

var (
	gooseRunFunc = goose.RunFS                // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrate(deltas []schema.Delta) error {
	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}

	rep, err := schema.NewMigrator(cli.deps.catalog, cli.log).Run(ctx, deltas)
	for _, res := range rep.Results {
		switch res.Status {
		case schema.StatusApplied:
			cli.ok("%s %s", res.Delta, res.Status)
		case schema.StatusSkipped:
			cli.ok("%s %s (already present)", res.Delta, res.Status)
		case schema.StatusFailed:
			cli.fail("%s %s: %v", res.Delta, res.Status, res.Err)
		}
	}
	for _, shape := range rep.Shapes {
		cli.printShape(shape)
	}
	if err != nil {
		return errors.Wrap(err, "migration aborted")
	}
	cli.ok("migration finished: %d applied, %d skipped", rep.Applied(), rep.Skipped())
	return nil
}

func (cli *commandLine) printShape(shape schema.TableShape) {
	fmt.Fprintf(cli.out, "📋 %s (%d columns)\n", shape.Table, len(shape.Columns))
	for _, col := range shape.Columns {
		line := "   - " + col.Name + " " + col.DataType
		if !col.Nullable {
			line += " NOT NULL"
		}
		if col.Default != "" {
			line += " DEFAULT " + col.Default
		}
		fmt.Fprintln(cli.out, line)
	}
}

func (cli *commandLine) verifySchema() error {
	ctx := context.Background()
	if err := cli.setup(ctx); err != nil {
		return errors.Wrap(err, "connecting")
	}

	expected := schema.ExpectedColumns()
	v, err := schema.NewMigrator(cli.deps.catalog, cli.log).Verify(ctx, expected)
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(expected))
	for t := range expected {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var missing int
	for _, table := range tables {
		cols := v.Missing[table]
		if len(cols) == 0 {
			cli.ok("%s: complete", table)
			continue
		}
		missing += len(cols)
		cli.fail("%s: missing %s", table, strings.Join(cols, ", "))
		fmt.Fprint(cli.out, columnsDiff(table, expected[table], v.Actual[table]))
	}
	if missing > 0 {
		return errors.Errorf("schema is missing %d column(s), run migrate", missing)
	}
	return nil
}

// columnsDiff renders a unified diff of the sorted expected and actual column names.
func columnsDiff(table string, expected []string, actual []schema.Column) string {
	want := append([]string(nil), expected...)
	sort.Strings(want)
	got := make([]string, 0, len(actual))
	for _, c := range actual {
		got = append(got, c.Name)
	}
	sort.Strings(got)

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(want, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(got, "\n") + "\n"),
		FromFile: table + " (expected)",
		ToFile:   table + " (store)",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func (cli *commandLine) baseline(args []string) error {
	if err := cli.setup(context.Background()); err != nil {
		return errors.Wrap(err, "connecting")
	}
	if err := gooseRunFunc(args[0], cli.sqlDB(), appfs.FS, "migrations", args[1:]...); err != nil {
		return err
	}
	cli.ok("baseline %s", args[0])
	return nil
}

func (cli *commandLine) createDB() error {
	if cli.askPassword {
		if err := cli.promptPassword(); err != nil {
			return err
		}
	}
	if err := createDBFunc(context.Background(), cli.conf); err != nil {
		return err
	}
	cli.ok("database %s ready", cli.conf.Database.Name)
	return nil
}
