package query

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// GroupByOperator reorders the records of its source so that records sharing a value in the
// grouping column come out together. Groups are emitted in the order their first record appeared
// in the source; within a group, records keep source order.
//
// Each pass partitions the source into one temporary table per group, which the iterator drops
// when closed.
type GroupByOperator struct {
	operatorBase
	txn         transaction.Context
	columnName  string
	columnIndex int
}

func NewGroupByOperator(source Operator, txn transaction.Context, column string) (*GroupByOperator, error) {
	name, idx, err := CheckSchemaForColumn(source.OutputSchema(), column)
	if err != nil {
		return nil, err
	}
	g := &GroupByOperator{
		operatorBase: operatorBase{opType: GroupByOp, source: source},
		txn:          txn,
		columnName:   name,
		columnIndex:  idx,
	}
	if err := finish(g, &g.operatorBase); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GroupByOperator) ComputeSchema() (*catalog.Schema, error) {
	return g.source.OutputSchema(), nil
}

func (g *GroupByOperator) EstimateStats() (*stats.TableStats, error) {
	return g.source.Stats(), nil
}

// EstimateIOCost charges the source, then one write and one read of every partitioned page.
func (g *GroupByOperator) EstimateIOCost() int {
	return g.source.IOCost() + 2*g.source.Stats().NumPages()
}

func (g *GroupByOperator) Iterator() (RecordIterator, error) {
	it := &groupByIterator{txn: g.txn}
	if err := it.partition(g); err != nil {
		return nil, errors.CombineErrors(err, it.Close())
	}
	return it, nil
}

func (g *GroupByOperator) describe() string {
	return fmt.Sprintf("%s\ncolumn: %s", g.operatorBase.describe(), g.columnName)
}

func (g *GroupByOperator) String() string {
	return render(g)
}

type groupByIterator struct {
	txn transaction.Context
	// groups holds one temp table per distinct key, in order of first appearance
	groups  []string
	next    int
	current storage.BacktrackingIterator[storage.Tuple]
	err     error
}

func (it *groupByIterator) partition(g *GroupByOperator) (err error) {
	src, err := g.source.Iterator()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, src.Close())
	}()

	keyType := g.OutputSchema().Field(g.columnIndex).Type
	groups := newGroupTable[string](keyType)
	schema := g.source.OutputSchema()
	newGroup := func() (string, error) { return it.txn.CreateTempTable(schema) }
	for src.Next() {
		tup := src.Current()
		table, created, err := groups.GetOrCreate(tup.GetValue(g.columnIndex), newGroup)
		if err != nil {
			return err
		}
		if created {
			it.groups = append(it.groups, table)
		}
		if err := it.txn.AddRecord(table, tup.Values()); err != nil {
			return err
		}
	}
	return src.Error()
}

func (it *groupByIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.current != nil && it.current.Next() {
			return true
		}
		if it.next >= len(it.groups) {
			return false
		}
		group, err := it.txn.GetRecordIterator(it.groups[it.next])
		if err != nil {
			it.err = err
			return false
		}
		it.current = group
		it.next++
	}
}

func (it *groupByIterator) Current() storage.Tuple {
	return it.current.Current()
}

func (it *groupByIterator) Error() error {
	return it.err
}

func (it *groupByIterator) Close() error {
	var err error
	for _, table := range it.groups {
		err = errors.CombineErrors(err, it.txn.DeleteTempTable(table))
	}
	it.groups = nil
	return err
}
