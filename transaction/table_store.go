package transaction

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// Table is a named heap file together with its schema. Base tables and temporary tables share
// this representation; only their owner differs.
type Table struct {
	Name   string
	Schema *catalog.Schema
	Heap   *storage.HeapFile

	statsLatch sync.Mutex
	stats      *stats.TableStats
	statsAt    int // NumRecords of Heap when stats was computed
}

func newTable(name string, schema *catalog.Schema) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		Heap:   storage.NewHeapFile(storage.NewRawTupleDesc(schema.FieldTypes())),
	}
}

// Stats returns statistics over the current contents of the table. They are recomputed only
// when records were added since the last call.
func (t *Table) Stats() (*stats.TableStats, error) {
	t.statsLatch.Lock()
	defer t.statsLatch.Unlock()
	n := t.Heap.NumRecords()
	if t.stats != nil && t.statsAt == n {
		return t.stats, nil
	}
	s, err := stats.Collect(t.Heap)
	if err != nil {
		return nil, errors.Wrapf(err, "collecting stats for table '%s'", t.Name)
	}
	t.stats, t.statsAt = s, n
	return s, nil
}

// TableStore owns the heap files of every base table in the catalog.
// Since the catalog only grows, heaps are created once per table and never dropped.
type TableStore struct {
	tables *xsync.MapOf[string, *Table]
}

// NewTableStore eagerly creates an empty heap for every table already defined in the catalog.
func NewTableStore(c *catalog.Catalog) *TableStore {
	ts := &TableStore{
		tables: xsync.NewMapOf[string, *Table](),
	}
	for _, tableDef := range c.ListTables() {
		ts.tables.Store(tableDef.Name, newTable(tableDef.Name, tableDef.Schema()))
	}
	return ts
}

// CreateTable allocates the heap of a newly registered catalog table.
func (ts *TableStore) CreateTable(tableDef *catalog.Table) (*Table, error) {
	table, loaded := ts.tables.LoadOrStore(tableDef.Name, newTable(tableDef.Name, tableDef.Schema()))
	if loaded {
		return nil, common.NewError(common.DuplicateObjectError, "table '%s' already has storage", tableDef.Name)
	}
	return table, nil
}

// GetTable retrieves the base table with the given name.
func (ts *TableStore) GetTable(name string) (*Table, error) {
	if table, ok := ts.tables.Load(name); ok {
		return table, nil
	}
	return nil, common.NewError(common.NoSuchObjectError, "table '%s' does not exist", name)
}
