package inmemdb

import (
	"sync"

	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/attendance"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/schema"
	"github.com/amigodopovo/academia/core/student"
)

type (
	// DB is an in-memory store. A single lock guards every table, which makes each
	// repository call behave like one transaction.
	DB struct {
		sync.RWMutex
		seq        map[string]int
		students   map[int]*student.Student
		activities map[int]*activity.Activity
		classes    map[int]*class.Class
		attendance map[int]*attendance.Record

		// catalog state
		columns   map[string][]schema.Column
		addErrors map[string]error
		connErr   error
	}
)

func Open() (*DB, error) {
	db := &DB{
		seq:        make(map[string]int),
		students:   make(map[int]*student.Student),
		activities: make(map[int]*activity.Activity),
		classes:    make(map[int]*class.Class),
		attendance: make(map[int]*attendance.Record),
		columns:    make(map[string][]schema.Column),
		addErrors:  make(map[string]error),
	}
	for _, table := range schema.Tables() {
		for _, name := range schema.BaselineColumns(table) {
			db.columns[table] = append(db.columns[table], schema.Column{Name: name, DataType: "text", Nullable: name != "id"})
		}
	}
	return db, nil
}

func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// ApplyAll marks every delta column as present, as after a complete migration.
func (db *DB) ApplyAll() {
	db.Lock()
	defer db.Unlock()
	for _, d := range schema.Deltas {
		if !db.hasColumn(d.Table, d.Column) {
			db.columns[d.Table] = append(db.columns[d.Table], deltaColumn(d))
		}
	}
}

// AddColumnManually simulates a column added outside of the migrator.
func (db *DB) AddColumnManually(table string, col schema.Column) {
	db.Lock()
	defer db.Unlock()
	if !db.hasColumn(table, col.Name) {
		db.columns[table] = append(db.columns[table], col)
	}
}

// DropTable removes a table from the catalog.
func (db *DB) DropTable(table string) {
	db.Lock()
	defer db.Unlock()
	delete(db.columns, table)
}

// FailAddColumn makes adding table.column fail with err.
func (db *DB) FailAddColumn(table, column string, err error) {
	db.Lock()
	defer db.Unlock()
	db.addErrors[table+"."+column] = err
}

// SetUnreachable makes every catalog call fail with err (nil restores access).
func (db *DB) SetUnreachable(err error) {
	db.Lock()
	defer db.Unlock()
	db.connErr = err
}

func (db *DB) hasColumn(table, column string) bool {
	for _, c := range db.columns[table] {
		if c.Name == column {
			return true
		}
	}
	return false
}
