package query

import (
	"fmt"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// SequentialScanOperator reads every record of a table in storage order. Its output schema is the
// table schema with each column qualified by the table name.
//
// Each call to Iterator starts an independent pass, so a scan may be re-run any number of times.
type SequentialScanOperator struct {
	operatorBase
	txn       transaction.Context
	tableName string
}

// NewSequentialScanOperator creates a scan of tableName. It fails with NoSuchObjectError if the
// transaction does not know the table.
func NewSequentialScanOperator(txn transaction.Context, tableName string) (*SequentialScanOperator, error) {
	op := &SequentialScanOperator{
		operatorBase: operatorBase{opType: SequentialScanOp},
		txn:          txn,
		tableName:    tableName,
	}
	if err := finish(op, &op.operatorBase); err != nil {
		return nil, err
	}
	return op, nil
}

// TableName is the table being scanned.
func (op *SequentialScanOperator) TableName() string {
	return op.tableName
}

func (op *SequentialScanOperator) ComputeSchema() (*catalog.Schema, error) {
	return op.txn.GetFullyQualifiedSchema(op.tableName)
}

func (op *SequentialScanOperator) EstimateStats() (*stats.TableStats, error) {
	return op.txn.GetStats(op.tableName)
}

func (op *SequentialScanOperator) EstimateIOCost() int {
	pages, err := op.txn.GetNumDataPages(op.tableName)
	// the schema lookup in the constructor already proved the table exists
	common.Assert(err == nil, "scanned table '%s' disappeared: %v", op.tableName, err)
	return pages
}

func (op *SequentialScanOperator) Iterator() (RecordIterator, error) {
	return op.txn.GetRecordIterator(op.tableName)
}

func (op *SequentialScanOperator) describe() string {
	return fmt.Sprintf("%s\ntable: %s", op.operatorBase.describe(), op.tableName)
}

func (op *SequentialScanOperator) String() string {
	return render(op)
}
