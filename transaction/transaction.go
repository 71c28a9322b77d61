package transaction

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// Transaction holds the runtime state of a single transaction: the base tables it can read
// and the temporary tables it has created. It implements Context.
//
// Exactly one operator tree runs against a Transaction at a time, but the temp-table registry
// is safe for concurrent use so that a transaction can be inspected while a query runs.
type Transaction struct {
	id      common.TransactionID
	store   *TableStore
	workMem int
	log     *logger.Logger

	temps *xsync.MapOf[string, *Table]
	// tempLatch guards tempOrder and nextTemp
	tempLatch sync.Mutex
	tempOrder []string
	nextTemp  int
	closed    bool
}

var _ Context = (*Transaction)(nil)

func newTransaction(id common.TransactionID, store *TableStore, workMem int, log *logger.Logger) *Transaction {
	common.Assert(workMem >= 3, "work memory must hold at least 3 pages")
	return &Transaction{
		id:        id,
		store:     store,
		workMem:   workMem,
		log:       log.Named("txn").With("txn", uint64(id)),
		temps:     xsync.NewMapOf[string, *Table](),
		tempOrder: make([]string, 0),
	}
}

func (txn *Transaction) ID() common.TransactionID {
	return txn.id
}

func (txn *Transaction) WorkMemSize() int {
	return txn.workMem
}

func (txn *Transaction) Logger() *logger.Logger {
	return txn.log
}

func (txn *Transaction) lookup(name string) (*Table, error) {
	if table, ok := txn.temps.Load(name); ok {
		return table, nil
	}
	return txn.store.GetTable(name)
}

// CreateTempTable implements Context.
func (txn *Transaction) CreateTempTable(schema *catalog.Schema) (string, error) {
	txn.tempLatch.Lock()
	defer txn.tempLatch.Unlock()
	if txn.closed {
		return "", common.NewError(common.InvalidOperationError, "transaction %d is closed", txn.id)
	}
	name := fmt.Sprintf("tempTable%d", txn.nextTemp)
	txn.nextTemp++
	txn.temps.Store(name, newTable(name, schema))
	txn.tempOrder = append(txn.tempOrder, name)
	txn.log.Debug("created temp table", "table", name, "schema", schema.String())
	return name, nil
}

// DeleteTempTable implements Context.
func (txn *Transaction) DeleteTempTable(name string) error {
	txn.tempLatch.Lock()
	defer txn.tempLatch.Unlock()
	if _, ok := txn.temps.LoadAndDelete(name); !ok {
		return common.NewError(common.NoSuchObjectError, "no temporary table '%s' in transaction %d", name, txn.id)
	}
	txn.tempOrder = slices.DeleteFunc(txn.tempOrder, func(n string) bool { return n == name })
	txn.log.Debug("dropped temp table", "table", name)
	return nil
}

// TempTableNames lists the live temporary tables in creation order.
func (txn *Transaction) TempTableNames() []string {
	txn.tempLatch.Lock()
	defer txn.tempLatch.Unlock()
	return slices.Clone(txn.tempOrder)
}

// AddRecord implements Context.
func (txn *Transaction) AddRecord(table string, values []common.Value) error {
	t, err := txn.lookup(table)
	if err != nil {
		return err
	}
	if err := t.Heap.AddRecord(values); err != nil {
		return errors.Wrapf(err, "inserting into '%s'", table)
	}
	return nil
}

func (txn *Transaction) GetSchema(table string) (*catalog.Schema, error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	return t.Schema, nil
}

func (txn *Transaction) GetFullyQualifiedSchema(table string) (*catalog.Schema, error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	return t.Schema.Qualify(table), nil
}

func (txn *Transaction) GetStats(table string) (*stats.TableStats, error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	return t.Stats()
}

func (txn *Transaction) GetNumDataPages(table string) (int, error) {
	t, err := txn.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.Heap.NumPages(), nil
}

func (txn *Transaction) GetPageIterator(table string) (storage.BacktrackingIterator[*storage.Page], error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	return t.Heap.PageIterator(), nil
}

func (txn *Transaction) GetRecordIterator(table string) (storage.BacktrackingIterator[storage.Tuple], error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	return t.Heap.RecordIterator(), nil
}

func (txn *Transaction) GetBlockIterator(table string, pages storage.Iterator[*storage.Page], maxPages int) (storage.BacktrackingIterator[storage.Tuple], error) {
	t, err := txn.lookup(table)
	if err != nil {
		return nil, err
	}
	if maxPages < 1 {
		return nil, common.NewError(common.InvalidOperationError, "block of %d pages requested on '%s'", maxPages, table)
	}
	return t.Heap.BlockIterator(pages, maxPages), nil
}

// Close drops every temporary table the transaction still holds. A closed transaction can
// still read base tables but can no longer create temporary ones.
func (txn *Transaction) Close() error {
	txn.tempLatch.Lock()
	defer txn.tempLatch.Unlock()
	if txn.closed {
		return nil
	}
	txn.closed = true
	for _, name := range txn.tempOrder {
		txn.temps.Delete(name)
	}
	if len(txn.tempOrder) > 0 {
		txn.log.Debug("dropped temp tables on close", "count", len(txn.tempOrder))
	}
	txn.tempOrder = txn.tempOrder[:0]
	return nil
}
