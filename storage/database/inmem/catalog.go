package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/schema"
)

type catalog struct {
	db *DB
}

var _ schema.Catalog = (*catalog)(nil) // interface compliance check

func NewCatalog(db *DB) schema.Catalog {
	return &catalog{db: db}
}

func (cat *catalog) ColumnExists(_ context.Context, table, column string) (bool, error) {
	cat.db.RLock()
	defer cat.db.RUnlock()
	if cat.db.connErr != nil {
		return false, cat.db.connErr
	}
	return cat.db.hasColumn(table, column), nil
}

func (cat *catalog) ListColumns(_ context.Context, table string) ([]schema.Column, error) {
	cat.db.RLock()
	defer cat.db.RUnlock()
	if cat.db.connErr != nil {
		return nil, cat.db.connErr
	}
	return append([]schema.Column(nil), cat.db.columns[table]...), nil
}

func (cat *catalog) ListTables(_ context.Context) ([]string, error) {
	cat.db.RLock()
	defer cat.db.RUnlock()
	if cat.db.connErr != nil {
		return nil, cat.db.connErr
	}
	tables := make([]string, 0, len(cat.db.columns))
	for t := range cat.db.columns {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables, nil
}

func (cat *catalog) AddColumn(_ context.Context, d schema.Delta) error {
	cat.db.Lock()
	defer cat.db.Unlock()
	if cat.db.connErr != nil {
		return cat.db.connErr
	}
	if err, ok := cat.db.addErrors[d.String()]; ok {
		return err
	}
	if _, ok := cat.db.columns[d.Table]; !ok {
		return core.NewError(core.KindSchema, `pq: relation "`+d.Table+`" does not exist`)
	}
	if cat.db.hasColumn(d.Table, d.Column) {
		return schema.ErrColumnExists
	}
	cat.db.columns[d.Table] = append(cat.db.columns[d.Table], deltaColumn(d))
	return nil
}

// deltaColumn describes the column a delta creates: "INTEGER DEFAULT 20" -> integer, default 20.
func deltaColumn(d schema.Delta) schema.Column {
	def := d.Definition
	col := schema.Column{Name: d.Column, Nullable: true}
	if i := strings.Index(def, " DEFAULT "); i >= 0 {
		col.Default = strings.Fields(def[i+len(" DEFAULT "):])[0]
		def = def[:i]
	}
	if i := strings.Index(def, " CHECK"); i >= 0 {
		def = def[:i]
	}
	col.DataType = strings.ToLower(strings.TrimSpace(def))
	return col
}
