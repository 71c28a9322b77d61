package transaction

import (
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
)

// Context is everything a query operator may ask of the transaction it runs in. Tables are
// addressed by name; a name resolves to one of the transaction's temporary tables first and to
// a base table otherwise.
//
// The operator tree never touches heap files directly. All reads go through the iterators
// returned here and all writes go through AddRecord on a table created by CreateTempTable.
type Context interface {
	// CreateTempTable allocates an empty temporary table with the given schema and returns its
	// name, which is unique for the lifetime of the transaction.
	CreateTempTable(schema *catalog.Schema) (string, error)
	// DeleteTempTable drops a temporary table. Deleting a base table is not allowed.
	DeleteTempTable(name string) error
	// AddRecord appends one record to the named table.
	AddRecord(table string, values []common.Value) error

	// GetSchema returns the schema of the table as it was created.
	GetSchema(table string) (*catalog.Schema, error)
	// GetFullyQualifiedSchema returns the schema with every column prefixed by the table name.
	GetFullyQualifiedSchema(table string) (*catalog.Schema, error)
	GetStats(table string) (*stats.TableStats, error)
	GetNumDataPages(table string) (int, error)

	GetPageIterator(table string) (storage.BacktrackingIterator[*storage.Page], error)
	GetRecordIterator(table string) (storage.BacktrackingIterator[storage.Tuple], error)
	// GetBlockIterator consumes up to maxPages pages from pages, which must come from
	// GetPageIterator on the same table, and iterates over their records.
	GetBlockIterator(table string, pages storage.Iterator[*storage.Page], maxPages int) (storage.BacktrackingIterator[storage.Tuple], error)

	// WorkMemSize is the number of buffer pages one operator may use.
	WorkMemSize() int
	// Logger is the transaction's logger, for operators that report what they spool.
	Logger() *logger.Logger
}
