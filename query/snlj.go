package query

import (
	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// SNLJOperator is the simple nested loop join: every left record is compared with every right
// record. Output follows left order, and right order for the same left record.
type SNLJOperator struct {
	joinBase
}

func NewSNLJOperator(left, right Operator, leftColumn, rightColumn string, txn transaction.Context) (*SNLJOperator, error) {
	op := &SNLJOperator{}
	if err := op.init(left, right, leftColumn, rightColumn, txn, SNLJ); err != nil {
		return nil, err
	}
	if err := finish(op, &op.operatorBase); err != nil {
		return nil, err
	}
	return op, nil
}

// EstimateIOCost is one scan of the left pages plus one scan of the right pages per left record.
func (op *SNLJOperator) EstimateIOCost() int {
	leftStats, rightStats := op.left.Stats(), op.right.Stats()
	return leftStats.NumRecords()*rightStats.NumPages() + leftStats.NumPages()
}

func (op *SNLJOperator) Iterator() (RecordIterator, error) {
	base, err := newJoinIterator(&op.joinBase)
	if err != nil {
		return nil, err
	}
	it := &snljIterator{joinIterator: base}
	if it.left, err = op.GetRecordIterator(base.leftTable); err != nil {
		return nil, errors.CombineErrors(err, base.Close())
	}
	if it.right, err = op.GetRecordIterator(base.rightTable); err != nil {
		return nil, errors.CombineErrors(err, base.Close())
	}
	it.right.MarkNext()
	return it, nil
}

func (op *SNLJOperator) String() string {
	return render(op)
}

type snljIterator struct {
	*joinIterator
	left, right storage.BacktrackingIterator[storage.Tuple]

	leftRecord storage.Tuple
	hasLeft    bool
}

func (it *snljIterator) Next() bool {
	if it.done {
		return false
	}
	for {
		if !it.hasLeft {
			if !it.left.Next() {
				return it.fail(it.left.Error())
			}
			it.leftRecord = it.left.Current()
			it.hasLeft = true
			it.right.Reset()
		}
		for it.right.Next() {
			rightRecord := it.right.Current()
			if it.matches(&it.leftRecord, &rightRecord) {
				it.emit(it.leftRecord, rightRecord)
				return true
			}
		}
		if err := it.right.Error(); err != nil {
			return it.fail(err)
		}
		it.hasLeft = false
	}
}

func (it *snljIterator) Close() error {
	return errors.CombineErrors(
		errors.CombineErrors(it.left.Close(), it.right.Close()),
		it.joinIterator.Close())
}
