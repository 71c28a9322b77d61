package transaction

import (
	"sync/atomic"

	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// TransactionManager hands out transactions over a shared TableStore and tracks which of
// them are still running.
type TransactionManager struct {
	// activeTxns maps TransactionIDs to their runtime context
	activeTxns *xsync.MapOf[common.TransactionID, *Transaction]

	store   *TableStore
	workMem int
	log     *logger.Logger

	nextTxnID atomic.Uint64
}

// NewTransactionManager initializes the transaction manager.
func NewTransactionManager(store *TableStore, workMem int, log *logger.Logger) *TransactionManager {
	tm := &TransactionManager{
		activeTxns: xsync.NewMapOf[common.TransactionID, *Transaction](),
		store:      store,
		workMem:    workMem,
		log:        log,
	}
	// id 0 is reserved for INVALID
	tm.nextTxnID.Store(1)
	return tm
}

// Begin starts a new transaction.
func (tm *TransactionManager) Begin() *Transaction {
	tid := common.TransactionID(tm.nextTxnID.Add(1) - 1)
	txn := newTransaction(tid, tm.store, tm.workMem, tm.log)
	tm.activeTxns.Store(tid, txn)
	return txn
}

// Commit ends a transaction, dropping its temporary tables. Base-table inserts are visible as
// soon as they are made, so there is nothing else to publish.
func (tm *TransactionManager) Commit(txn *Transaction) error {
	if _, ok := tm.activeTxns.LoadAndDelete(txn.id); !ok {
		return common.NewError(common.InvalidOperationError, "transaction %d is not active", txn.id)
	}
	return txn.Close()
}

// NumActive returns the number of transactions begun but not yet committed.
func (tm *TransactionManager) NumActive() int {
	return tm.activeTxns.Size()
}
