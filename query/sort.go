package query

import (
	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/tidwall/btree"
)

// sortEntry orders records by their sort key. seq breaks ties: the arrival position while runs are
// built and the run number while they are merged, so the sort is stable.
type sortEntry struct {
	key    common.Value
	seq    int
	record storage.Tuple
}

func sortEntryLess(a, b sortEntry) bool {
	if c := a.key.Compare(b.key); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

// sortTable writes the records of table, ordered by column, into a new temporary table owned by
// the iterator. It is an external merge sort in B buffer pages: pass 0 sorts B pages at a time
// into runs, and every later pass merges B-1 runs into one until one run remains.
func (it *joinIterator) sortTable(table string, column int) (string, error) {
	schema, err := it.join.txn.GetSchema(table)
	if err != nil {
		return "", err
	}
	numBuffers := it.join.txn.WorkMemSize()
	runs, err := it.sortedRuns(table, schema, column, numBuffers)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return it.newTemp(schema)
	}
	for len(runs) > 1 {
		next := make([]string, 0, (len(runs)+numBuffers-2)/(numBuffers-1))
		for start := 0; start < len(runs); start += numBuffers - 1 {
			group := runs[start:min(start+numBuffers-1, len(runs))]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			merged, err := it.mergeRuns(schema, group, column)
			if err != nil {
				return "", err
			}
			next = append(next, merged)
		}
		runs = next
	}
	return runs[0], nil
}

func (it *joinIterator) sortedRuns(table string, schema *catalog.Schema, column, numBuffers int) (runs []string, err error) {
	pages, err := it.join.GetPageIterator(table)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.CombineErrors(err, pages.Close())
	}()
	for {
		block, err := it.join.GetBlockIterator(table, pages, numBuffers)
		if err != nil {
			return nil, err
		}
		tree := btree.NewBTreeG(sortEntryLess)
		for seq := 0; block.Next(); seq++ {
			record := block.Current()
			tree.Set(sortEntry{key: record.GetValue(column), seq: seq, record: record})
		}
		if err := block.Error(); err != nil {
			return nil, err
		}
		if tree.Len() == 0 {
			return runs, nil
		}
		run, err := it.newTemp(schema)
		if err != nil {
			return nil, err
		}
		tree.Scan(func(e sortEntry) bool {
			err = it.join.txn.AddRecord(run, e.record.Values())
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
}

// mergeRuns merges sorted runs into one new run and drops the inputs.
func (it *joinIterator) mergeRuns(schema *catalog.Schema, runs []string, column int) (string, error) {
	out, err := it.newTemp(schema)
	if err != nil {
		return "", err
	}
	iters := make([]storage.BacktrackingIterator[storage.Tuple], len(runs))
	heads := btree.NewBTreeG(sortEntryLess)
	advance := func(i int) error {
		if !iters[i].Next() {
			return iters[i].Error()
		}
		record := iters[i].Current()
		heads.Set(sortEntry{key: record.GetValue(column), seq: i, record: record})
		return nil
	}
	for i, run := range runs {
		if iters[i], err = it.join.GetRecordIterator(run); err != nil {
			return "", err
		}
		if err := advance(i); err != nil {
			return "", err
		}
	}
	for heads.Len() > 0 {
		e, _ := heads.PopMin()
		if err := it.join.txn.AddRecord(out, e.record.Values()); err != nil {
			return "", err
		}
		if err := advance(e.seq); err != nil {
			return "", err
		}
	}
	for i, run := range runs {
		err = errors.CombineErrors(err, iters[i].Close())
		err = errors.CombineErrors(err, it.dropTemp(run))
	}
	return out, err
}

// sortCost is the I/O cost of sorting numPages pages with numBuffers buffer pages: every pass
// reads and writes every page once.
func sortCost(numPages, numBuffers int) int {
	if numPages <= 0 {
		return 0
	}
	passes := 1
	for runs := (numPages + numBuffers - 1) / numBuffers; runs > 1; runs = (runs + numBuffers - 2) / (numBuffers - 1) {
		passes++
	}
	return 2 * numPages * passes
}
