package stats

import (
	"fmt"
	"math"

	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/storage"
)

// TableStats summarizes a table or an intermediate result: how many records it holds, the
// types of its columns (which fix how many records fit on a page) and one histogram per column.
//
// TableStats values are immutable; every CopyWith* method returns a new value, so stats can be
// shared between the nodes of an operator tree.
type TableStats struct {
	numRecords     int
	types          []common.Type
	recordsPerPage int
	histograms     []*Histogram
}

// New creates stats for a result of numRecords rows of the given column types.
func New(types []common.Type, numRecords int, histograms []*Histogram) *TableStats {
	common.Assert(len(types) == len(histograms), "one histogram per column is required")
	return &TableStats{
		numRecords:     numRecords,
		types:          types,
		recordsPerPage: storage.PageCapacity(storage.NewRawTupleDesc(types)),
		histograms:     histograms,
	}
}

// Collect computes stats for every record currently stored in h.
func Collect(h *storage.HeapFile) (*TableStats, error) {
	desc := h.StorageSchema()
	columns := make([][]common.Value, desc.NumColumns())
	it := h.RecordIterator()
	defer it.Close()
	n := 0
	for it.Next() {
		tup := it.Current()
		for i := range columns {
			columns[i] = append(columns[i], tup.GetValue(i))
		}
		n++
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	histograms := make([]*Histogram, len(columns))
	for i, values := range columns {
		histograms[i] = NewHistogram(values, DefaultNumBuckets)
	}
	return New(desc.GetFieldTypes(), n, histograms), nil
}

func (s *TableStats) NumRecords() int {
	return s.numRecords
}

func (s *TableStats) RecordsPerPage() int {
	return s.recordsPerPage
}

// NumPages is the number of pages the records would occupy if written to a table.
func (s *TableStats) NumPages() int {
	return (s.numRecords + s.recordsPerPage - 1) / s.recordsPerPage
}

func (s *TableStats) Histogram(i int) *Histogram {
	return s.histograms[i]
}

func (s *TableStats) NumColumns() int {
	return len(s.histograms)
}

func (s *TableStats) String() string {
	return fmt.Sprintf("records=%d pages=%d", s.numRecords, s.NumPages())
}

// CopyWithPredicate returns the stats of the records satisfying "column col op v".
func (s *TableStats) CopyWithPredicate(col int, op common.PredicateOperator, v common.Value) *TableStats {
	sel := s.histograms[col].Selectivity(op, v)
	histograms := make([]*Histogram, len(s.histograms))
	for i, hist := range s.histograms {
		if i == col {
			histograms[i] = hist.CopyWithPredicate(op, v)
		} else {
			histograms[i] = hist.CopyWithReduction(sel)
		}
	}
	return &TableStats{
		numRecords:     int(math.Round(float64(s.numRecords) * sel)),
		types:          s.types,
		recordsPerPage: s.recordsPerPage,
		histograms:     histograms,
	}
}

// CopyWithProject returns the stats of the records narrowed to the given columns.
func (s *TableStats) CopyWithProject(indices []int) *TableStats {
	types := make([]common.Type, len(indices))
	histograms := make([]*Histogram, len(indices))
	for i, idx := range indices {
		types[i] = s.types[idx]
		histograms[i] = s.histograms[idx]
	}
	return New(types, s.numRecords, histograms)
}

// CopyWithJoin returns the stats of the equi-join of s and right on s's column leftIdx and
// right's column rightIdx. The output has |L|*|R| / max(distinct(L.left), distinct(R.right))
// records and the columns of s followed by the columns of right.
func (s *TableStats) CopyWithJoin(leftIdx int, right *TableStats, rightIdx int) *TableStats {
	leftDistinct := s.histograms[leftIdx].NumDistinct()
	rightDistinct := right.histograms[rightIdx].NumDistinct()

	numRecords := 0
	if d := math.Max(leftDistinct, rightDistinct); d > 0 {
		numRecords = int(math.Round(float64(s.numRecords) * float64(right.numRecords) / d))
	}

	types := make([]common.Type, 0, len(s.types)+len(right.types))
	types = append(append(types, s.types...), right.types...)
	histograms := make([]*Histogram, 0, len(types))
	for _, hist := range s.histograms {
		histograms = append(histograms, hist.CopyWithReduction(scale(numRecords, s.numRecords)))
	}
	for _, hist := range right.histograms {
		histograms = append(histograms, hist.CopyWithReduction(scale(numRecords, right.numRecords)))
	}
	return New(types, numRecords, histograms)
}

func scale(to, from int) float64 {
	if from == 0 {
		return 0
	}
	return float64(to) / float64(from)
}
