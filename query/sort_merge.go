package query

import (
	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// SortMergeOperator sorts both inputs on their join column into temporary tables and merges the
// two sorted tables. Output is in ascending join-key order; records with equal keys come out in
// left order, then right order, with each input's original order kept among equal keys.
type SortMergeOperator struct {
	joinBase
}

func NewSortMergeOperator(left, right Operator, leftColumn, rightColumn string, txn transaction.Context) (*SortMergeOperator, error) {
	op := &SortMergeOperator{}
	if err := op.init(left, right, leftColumn, rightColumn, txn, SortMerge); err != nil {
		return nil, err
	}
	if err := finish(op, &op.operatorBase); err != nil {
		return nil, err
	}
	return op, nil
}

// EstimateIOCost is the cost of sorting both inputs plus one pass over each sorted input.
func (op *SortMergeOperator) EstimateIOCost() int {
	numBuffers := op.txn.WorkMemSize()
	leftPages, rightPages := op.left.Stats().NumPages(), op.right.Stats().NumPages()
	return sortCost(leftPages, numBuffers) + sortCost(rightPages, numBuffers) + leftPages + rightPages
}

func (op *SortMergeOperator) Iterator() (RecordIterator, error) {
	base, err := newJoinIterator(&op.joinBase)
	if err != nil {
		return nil, err
	}
	it := &sortMergeIterator{joinIterator: base}
	if err := it.init(); err != nil {
		return nil, errors.CombineErrors(err, base.Close())
	}
	return it, nil
}

func (op *SortMergeOperator) String() string {
	return render(op)
}

type sortMergeIterator struct {
	*joinIterator
	left, right storage.BacktrackingIterator[storage.Tuple]

	leftRecord, rightRecord storage.Tuple
	hasLeft, hasRight       bool
	// marked is set while the right input is marked at the first record of a run of keys equal
	// to the current left key
	marked bool
}

func (it *sortMergeIterator) init() error {
	leftSorted, err := it.sortTable(it.leftTable, it.join.leftColumnIndex)
	if err != nil {
		return errors.Wrap(err, "sorting left input")
	}
	rightSorted, err := it.sortTable(it.rightTable, it.join.rightColumnIndex)
	if err != nil {
		return errors.Wrap(err, "sorting right input")
	}
	if it.left, err = it.join.GetRecordIterator(leftSorted); err != nil {
		return err
	}
	if it.right, err = it.join.GetRecordIterator(rightSorted); err != nil {
		return err
	}
	it.advanceLeft()
	it.advanceRight()
	return it.err
}

func (it *sortMergeIterator) advanceLeft() {
	if it.hasLeft = it.left.Next(); it.hasLeft {
		it.leftRecord = it.left.Current()
	} else if err := it.left.Error(); err != nil {
		it.err = err
	}
}

func (it *sortMergeIterator) advanceRight() {
	if it.hasRight = it.right.Next(); it.hasRight {
		it.rightRecord = it.right.Current()
	} else if err := it.right.Error(); err != nil {
		it.err = err
	}
}

func (it *sortMergeIterator) Next() bool {
	if it.done {
		return false
	}
	for it.err == nil {
		if !it.hasLeft || (!it.hasRight && !it.marked) {
			break
		}
		if !it.marked {
			switch c := it.compare(&it.leftRecord, &it.rightRecord); {
			case c < 0:
				it.advanceLeft()
				continue
			case c > 0:
				it.advanceRight()
				continue
			}
			it.right.MarkPrev()
			it.marked = true
		}
		if it.hasRight && it.matches(&it.leftRecord, &it.rightRecord) {
			it.emit(it.leftRecord, it.rightRecord)
			it.advanceRight()
			return true
		}
		// The run of equal right keys is done for this left record; replay it for the next one.
		it.right.Reset()
		it.advanceRight()
		it.advanceLeft()
		it.marked = false
	}
	return it.fail(nil)
}

func (it *sortMergeIterator) Close() error {
	var err error
	if it.left != nil {
		err = errors.CombineErrors(err, it.left.Close())
	}
	if it.right != nil {
		err = errors.CombineErrors(err, it.right.Close())
	}
	return errors.CombineErrors(err, it.joinIterator.Close())
}
