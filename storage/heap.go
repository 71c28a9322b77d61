package storage

import (
	"sync"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// HeapFile is an append-only, page-structured table held in memory.
// Records are never updated or deleted in place, so page order followed by slot order is
// exactly insertion order.
type HeapFile struct {
	desc  *RawTupleDesc
	pages []*Page

	numRecords int
	rowBuffer  []byte

	// Guard for file extension to prevent race conditions
	tailLatch sync.Mutex
}

// NewHeapFile creates an empty heap file for rows of the given layout.
func NewHeapFile(desc *RawTupleDesc) *HeapFile {
	return &HeapFile{
		desc:      desc,
		pages:     make([]*Page, 0),
		rowBuffer: make([]byte, desc.BytesPerTuple()),
	}
}

// StorageSchema returns the physical byte-layout descriptor of the rows in this file.
func (h *HeapFile) StorageSchema() *RawTupleDesc {
	return h.desc
}

func (h *HeapFile) NumPages() int {
	h.tailLatch.Lock()
	defer h.tailLatch.Unlock()
	return len(h.pages)
}

func (h *HeapFile) NumRecords() int {
	h.tailLatch.Lock()
	defer h.tailLatch.Unlock()
	return h.numRecords
}

func (h *HeapFile) appendLocked(row RawTuple) {
	if len(h.pages) == 0 || h.pages[len(h.pages)-1].IsFull() {
		h.pages = append(h.pages, NewPage(h.desc, len(h.pages)))
	}
	tail := h.pages[len(h.pages)-1]
	slot := tail.Append(row)
	common.Assert(slot >= 0, "fresh tail page must have room")
	h.numRecords++
}

// AddRecord validates values against the layout of the file and appends them as one row.
func (h *HeapFile) AddRecord(values []common.Value) error {
	if len(values) != h.desc.NumColumns() {
		return common.NewError(common.SchemaMismatchError,
			"record has %d values, table expects %d", len(values), h.desc.NumColumns())
	}
	for i, v := range values {
		if v.Type() != h.desc.GetFieldType(i) {
			return common.NewError(common.SchemaMismatchError,
				"value %d has type %s, table expects %s", i, v.Type(), h.desc.GetFieldType(i))
		}
	}

	h.tailLatch.Lock()
	defer h.tailLatch.Unlock()
	tup := FromValues(values...)
	tup.WriteToBuffer(h.rowBuffer, h.desc)
	h.appendLocked(h.rowBuffer)
	return nil
}

func (h *HeapFile) snapshot() []*Page {
	h.tailLatch.Lock()
	defer h.tailLatch.Unlock()
	return h.pages[:len(h.pages):len(h.pages)]
}

// PageIterator returns a backtracking iterator over the pages of the file as of the call.
func (h *HeapFile) PageIterator() BacktrackingIterator[*Page] {
	return NewSliceIterator(h.snapshot())
}

// RecordIterator returns a backtracking iterator over every row of the file.
func (h *HeapFile) RecordIterator() BacktrackingIterator[Tuple] {
	return NewRecordIterator(h.snapshot(), h.desc)
}

// BlockIterator consumes up to maxPages pages from pages and returns a backtracking iterator
// over the rows of just those pages. Call it repeatedly on the same page iterator to walk a
// file block by block; an exhausted page iterator yields an empty block.
func (h *HeapFile) BlockIterator(pages Iterator[*Page], maxPages int) BacktrackingIterator[Tuple] {
	common.Assert(maxPages > 0, "block must hold at least one page")
	block := make([]*Page, 0, maxPages)
	for len(block) < maxPages && pages.Next() {
		block = append(block, pages.Current())
	}
	return NewRecordIterator(block, h.desc)
}
