package query

import (
	"fmt"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
)

// SelectOperator keeps the records of its source for which "column op value" holds. It pipelines,
// so its output order is the source's.
type SelectOperator struct {
	operatorBase
	columnName  string
	columnIndex int
	op          common.PredicateOperator
	value       common.Value
}

// NewSelectOperator filters source on column. The constant must have the column's type.
func NewSelectOperator(source Operator, column string, op common.PredicateOperator, value common.Value) (*SelectOperator, error) {
	name, idx, err := CheckSchemaForColumn(source.OutputSchema(), column)
	if err != nil {
		return nil, err
	}
	if colType := source.OutputSchema().Field(idx).Type; colType != value.Type() {
		return nil, common.NewError(common.TypeMismatchError,
			"Column %s has type %s, cannot compare with %s value %s.", name, colType, value.Type(), value)
	}
	sel := &SelectOperator{
		operatorBase: operatorBase{opType: SelectOp, source: source},
		columnName:   name,
		columnIndex:  idx,
		op:           op,
		value:        value,
	}
	if err := finish(sel, &sel.operatorBase); err != nil {
		return nil, err
	}
	return sel, nil
}

func (s *SelectOperator) ComputeSchema() (*catalog.Schema, error) {
	return s.source.OutputSchema(), nil
}

func (s *SelectOperator) EstimateStats() (*stats.TableStats, error) {
	return s.source.Stats().CopyWithPredicate(s.columnIndex, s.op, s.value), nil
}

func (s *SelectOperator) EstimateIOCost() int {
	return s.source.IOCost()
}

func (s *SelectOperator) Iterator() (RecordIterator, error) {
	src, err := s.source.Iterator()
	if err != nil {
		return nil, err
	}
	return &selectIterator{src: src, sel: s}, nil
}

func (s *SelectOperator) describe() string {
	return fmt.Sprintf("%s\ncolumn: %s\noperator: %s\nvalue: %s", s.operatorBase.describe(), s.columnName, s.op, s.value)
}

func (s *SelectOperator) String() string {
	return render(s)
}

type selectIterator struct {
	src RecordIterator
	sel *SelectOperator
}

func (it *selectIterator) Next() bool {
	for it.src.Next() {
		tup := it.src.Current()
		if it.sel.op.Evaluate(tup.GetValue(it.sel.columnIndex), it.sel.value) {
			return true
		}
	}
	return false
}

func (it *selectIterator) Current() storage.Tuple {
	return it.src.Current()
}

func (it *selectIterator) Error() error {
	return it.src.Error()
}

func (it *selectIterator) Close() error {
	return it.src.Close()
}
