package query

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// MaterializeOperator drains its source into a temporary table when it is built and afterwards
// reads that table back. Its output is rewindable however the source was computed, and joins over
// it use the table directly.
//
// The table lives until the transaction ends.
type MaterializeOperator struct {
	operatorBase
	txn       transaction.Context
	tableName string
}

func NewMaterializeOperator(source Operator, txn transaction.Context) (*MaterializeOperator, error) {
	name, n, err := spool(txn, source)
	if err != nil {
		return nil, err
	}
	txn.Logger().Debug("materialized operator output", "source", source.Type().String(), "table", name, "records", n)
	m := &MaterializeOperator{
		operatorBase: operatorBase{opType: MaterializeOp, source: source},
		txn:          txn,
		tableName:    name,
	}
	if err := finish(m, &m.operatorBase); err != nil {
		return nil, err
	}
	return m, nil
}

// TableName is the temporary table holding the source's output.
func (m *MaterializeOperator) TableName() string {
	return m.tableName
}

func (m *MaterializeOperator) ComputeSchema() (*catalog.Schema, error) {
	return m.source.OutputSchema(), nil
}

func (m *MaterializeOperator) EstimateStats() (*stats.TableStats, error) {
	return m.source.Stats(), nil
}

// EstimateIOCost charges the source, one write and one read of every page spooled.
func (m *MaterializeOperator) EstimateIOCost() int {
	return m.source.IOCost() + 2*m.source.Stats().NumPages()
}

func (m *MaterializeOperator) Iterator() (RecordIterator, error) {
	return m.txn.GetRecordIterator(m.tableName)
}

func (m *MaterializeOperator) describe() string {
	return fmt.Sprintf("%s\ntable: %s", m.operatorBase.describe(), m.tableName)
}

func (m *MaterializeOperator) String() string {
	return render(m)
}

// spool creates a temporary table with the schema of source and appends every record source
// produces, in order. It returns the table name and the number of records written. On failure the
// table is dropped again.
func spool(txn transaction.Context, source Operator) (string, int, error) {
	name, err := txn.CreateTempTable(source.OutputSchema())
	if err != nil {
		return "", 0, err
	}
	n, err := drainInto(txn, name, source)
	if err != nil {
		return "", 0, errors.CombineErrors(err, txn.DeleteTempTable(name))
	}
	return name, n, nil
}

func drainInto(txn transaction.Context, table string, source Operator) (n int, err error) {
	it, err := source.Iterator()
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.CombineErrors(err, it.Close())
	}()
	for it.Next() {
		tup := it.Current()
		if err := txn.AddRecord(table, tup.Values()); err != nil {
			return n, err
		}
		n++
	}
	return n, it.Error()
}
