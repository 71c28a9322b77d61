package query

import (
	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// PNLJOperator is the page nested loop join: each left page is paired with each right page, and
// the records of the two pages are compared. Output order is left page, then right page, then
// left record, then right record.
type PNLJOperator struct {
	joinBase
}

func NewPNLJOperator(left, right Operator, leftColumn, rightColumn string, txn transaction.Context) (*PNLJOperator, error) {
	op := &PNLJOperator{}
	if err := op.init(left, right, leftColumn, rightColumn, txn, PNLJ); err != nil {
		return nil, err
	}
	if err := finish(op, &op.operatorBase); err != nil {
		return nil, err
	}
	return op, nil
}

// EstimateIOCost is one scan of the left pages plus one scan of the right pages per left page.
func (op *PNLJOperator) EstimateIOCost() int {
	return blockJoinCost(op.left.Stats().NumPages(), op.right.Stats().NumPages(), 1)
}

func (op *PNLJOperator) Iterator() (RecordIterator, error) {
	return newBlockJoinIterator(&op.joinBase, 1)
}

func (op *PNLJOperator) String() string {
	return render(op)
}

// BNLJOperator is the block nested loop join. It holds B-2 left pages in memory at a time, one
// page is reserved for the right input and one for output, and scans the right input once per
// left block. Output order is left block, then right page, then left record, then right record.
type BNLJOperator struct {
	joinBase
	blockPages int
}

func NewBNLJOperator(left, right Operator, leftColumn, rightColumn string, txn transaction.Context) (*BNLJOperator, error) {
	op := &BNLJOperator{blockPages: txn.WorkMemSize() - 2}
	common.Assert(op.blockPages >= 1, "BNLJ needs at least three buffer pages")
	if err := op.init(left, right, leftColumn, rightColumn, txn, BNLJ); err != nil {
		return nil, err
	}
	if err := finish(op, &op.operatorBase); err != nil {
		return nil, err
	}
	return op, nil
}

// EstimateIOCost is one scan of the left pages plus one scan of the right pages per left block.
func (op *BNLJOperator) EstimateIOCost() int {
	return blockJoinCost(op.left.Stats().NumPages(), op.right.Stats().NumPages(), op.blockPages)
}

func (op *BNLJOperator) Iterator() (RecordIterator, error) {
	return newBlockJoinIterator(&op.joinBase, op.blockPages)
}

func (op *BNLJOperator) String() string {
	return render(op)
}

func blockJoinCost(leftPages, rightPages, blockPages int) int {
	numBlocks := (leftPages + blockPages - 1) / blockPages
	return numBlocks*rightPages + leftPages
}

// blockJoinIterator walks the left input blockPages pages at a time. For every block, the right
// input is read one page at a time, and every record of the block is compared against every
// record of that page.
type blockJoinIterator struct {
	*joinIterator
	blockPages int

	leftPages  storage.BacktrackingIterator[*storage.Page]
	rightPages storage.BacktrackingIterator[*storage.Page]
	// leftBlock holds the records of the current left block; rightPage those of the current
	// right page. Both are marked at their first record.
	leftBlock storage.BacktrackingIterator[storage.Tuple]
	rightPage storage.BacktrackingIterator[storage.Tuple]

	leftRecord storage.Tuple
	hasLeft    bool
}

func newBlockJoinIterator(j *joinBase, blockPages int) (*blockJoinIterator, error) {
	base, err := newJoinIterator(j)
	if err != nil {
		return nil, err
	}
	it := &blockJoinIterator{joinIterator: base, blockPages: blockPages}
	if it.leftPages, err = j.GetPageIterator(base.leftTable); err != nil {
		return nil, errors.CombineErrors(err, base.Close())
	}
	if it.rightPages, err = j.GetPageIterator(base.rightTable); err != nil {
		return nil, errors.CombineErrors(err, base.Close())
	}
	// rewinding the right pages brings back the first one
	it.rightPages.MarkNext()
	return it, nil
}

// fetchBlock reads the next block of up to maxPages pages of table. It returns nil once pages is
// exhausted.
func (it *blockJoinIterator) fetchBlock(table string, pages storage.Iterator[*storage.Page], maxPages int) storage.BacktrackingIterator[storage.Tuple] {
	block, err := it.join.GetBlockIterator(table, pages, maxPages)
	if err != nil {
		it.err = err
		return nil
	}
	// Pages are never empty, so a block without a first record has no pages.
	if !block.Next() {
		it.err = block.Error()
		return nil
	}
	block.MarkPrev()
	block.Reset()
	return block
}

// fetchLeftBlock moves to the next left block and rewinds the right input to its first page.
func (it *blockJoinIterator) fetchLeftBlock() bool {
	if it.leftBlock = it.fetchBlock(it.leftTable, it.leftPages, it.blockPages); it.leftBlock == nil {
		return false
	}
	it.rightPages.Reset()
	return it.fetchRightPage()
}

func (it *blockJoinIterator) fetchRightPage() bool {
	if it.rightPage = it.fetchBlock(it.rightTable, it.rightPages, 1); it.rightPage == nil {
		return false
	}
	return true
}

func (it *blockJoinIterator) Next() bool {
	if it.done {
		return false
	}
	for {
		if it.hasLeft {
			for it.rightPage.Next() {
				rightRecord := it.rightPage.Current()
				if it.matches(&it.leftRecord, &rightRecord) {
					it.emit(it.leftRecord, rightRecord)
					return true
				}
			}
			it.hasLeft = false
		}
		switch {
		case it.leftBlock != nil && it.leftBlock.Next():
			// next record of the block against the same right page
			it.leftRecord = it.leftBlock.Current()
			it.hasLeft = true
			it.rightPage.Reset()
		case it.leftBlock != nil && it.fetchRightPage():
			// the whole block against the next right page
			it.leftBlock.Reset()
		case it.err != nil || !it.fetchLeftBlock():
			return it.fail(nil)
		}
	}
}

func (it *blockJoinIterator) Close() error {
	return errors.CombineErrors(
		errors.CombineErrors(it.leftPages.Close(), it.rightPages.Close()),
		it.joinIterator.Close())
}
