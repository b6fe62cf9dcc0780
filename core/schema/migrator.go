package schema

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core"
)

type Status string

const (
	StatusSkipped Status = "SKIPPED"
	StatusApplied Status = "APPLIED"
	StatusFailed  Status = "FAILED"
)

type (
	// Result is the outcome of a single delta.
	Result struct {
		Delta  Delta
		Status Status
		Err    error
	}

	// TableShape is the full column list of a table after a run.
	TableShape struct {
		Table   string
		Columns []Column
	}

	Report struct {
		Results []Result
		Shapes  []TableShape
	}

	// Verification lists, per table, the expected columns that are absent from the store.
	Verification struct {
		Missing map[string][]string
		Actual  map[string][]Column
	}

	Migrator struct {
		cat Catalog
		log core.Logger
	}
)

func NewMigrator(cat Catalog, log core.Logger) *Migrator {
	return &Migrator{cat: cat, log: log}
}

func (r Report) count(s Status) int {
	var n int
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r Report) Applied() int { return r.count(StatusApplied) }
func (r Report) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the failed delta result, if any.
func (r Report) Failed() (Result, bool) {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return res, true
		}
	}
	return Result{}, false
}

// Run applies deltas in order. Present columns are SKIPPED; the first failure aborts the
// remaining deltas and is returned verbatim. Every touched table's shape is read back.
func (m *Migrator) Run(ctx context.Context, deltas []Delta) (Report, error) {
	var rep Report

	// connection and authentication problems surface here, before any change
	if _, err := m.cat.ListTables(ctx); err != nil {
		m.log.Error("migration aborted: store unreachable", err)
		return rep, err
	}

	var runErr error
	for _, d := range deltas {
		res := m.apply(ctx, d)
		rep.Results = append(rep.Results, res)
		if res.Status == StatusFailed {
			runErr = res.Err
			break
		}
	}

	if k := core.KindOf(runErr); k == core.KindTransientConnect || k == core.KindConfig {
		return rep, runErr
	}

	for _, table := range touchedTables(deltas) {
		cols, err := m.cat.ListColumns(ctx, table)
		if err != nil {
			if runErr == nil {
				runErr = errors.Wrapf(err, "reading %s columns", table)
			}
			break
		}
		rep.Shapes = append(rep.Shapes, TableShape{Table: table, Columns: cols})
	}
	return rep, runErr
}

func (m *Migrator) apply(ctx context.Context, d Delta) Result {
	exists, err := m.cat.ColumnExists(ctx, d.Table, d.Column)
	if err != nil {
		m.log.Error("checking "+d.String(), err)
		return Result{Delta: d, Status: StatusFailed, Err: err}
	}
	if exists {
		m.log.Info(d.String() + " already present, skipped")
		return Result{Delta: d, Status: StatusSkipped}
	}

	if err = m.cat.AddColumn(ctx, d); err != nil {
		if errors.Is(err, ErrColumnExists) {
			m.log.Info(d.String() + " added concurrently, skipped")
			return Result{Delta: d, Status: StatusSkipped}
		}
		m.log.Error("adding "+d.String(), err)
		return Result{Delta: d, Status: StatusFailed, Err: err}
	}
	m.log.Info(d.String() + " applied")
	return Result{Delta: d, Status: StatusApplied}
}

// Verify compares the store against expected (table -> columns).
func (m *Migrator) Verify(ctx context.Context, expected map[string][]string) (Verification, error) {
	v := Verification{
		Missing: make(map[string][]string),
		Actual:  make(map[string][]Column, len(expected)),
	}

	tables := make([]string, 0, len(expected))
	for t := range expected {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		cols, err := m.cat.ListColumns(ctx, table)
		if err != nil {
			return Verification{}, errors.Wrapf(err, "reading %s columns", table)
		}
		v.Actual[table] = cols

		present := make(map[string]bool, len(cols))
		for _, c := range cols {
			present[c.Name] = true
		}
		for _, name := range expected[table] {
			if !present[name] {
				v.Missing[table] = append(v.Missing[table], name)
			}
		}
	}
	return v, nil
}

// OK reports whether no expected column is missing.
func (v Verification) OK() bool {
	return len(v.Missing) == 0
}

func touchedTables(deltas []Delta) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, d := range deltas {
		if !seen[d.Table] {
			seen[d.Table] = true
			tables = append(tables, d.Table)
		}
	}
	return tables
}
