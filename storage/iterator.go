package storage

// Iterator is the pull protocol shared by every producer of records or pages.
//
// Next advances to the next item and reports whether one exists. Current returns the
// item most recently produced by Next. Once Next returns false, Error reports whether
// the iteration stopped because of a failure rather than exhaustion. Close releases
// anything the iterator holds; it is safe to call on a partially consumed iterator.
type Iterator[T any] interface {
	Next() bool
	Current() T
	Error() error
	Close() error
}

// BacktrackingIterator is an Iterator that can return to a marked position.
//
// MarkPrev marks the item most recently returned by Next; MarkNext marks the item the
// next call to Next would return. Reset rewinds so that the following Next returns the
// marked item again. Reset without a mark is a no-op.
type BacktrackingIterator[T any] interface {
	Iterator[T]
	MarkPrev()
	MarkNext()
	Reset()
}

// SliceIterator is a BacktrackingIterator over an in-memory slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
	mark  int
}

// NewSliceIterator returns an iterator positioned before the first element of items.
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items, pos: -1, mark: -1}
}

func (it *SliceIterator[T]) Next() bool {
	if it.pos < len(it.items) {
		it.pos++
	}
	return it.pos < len(it.items)
}

func (it *SliceIterator[T]) Current() T {
	return it.items[it.pos]
}

func (it *SliceIterator[T]) Error() error {
	return nil
}

func (it *SliceIterator[T]) Close() error {
	return nil
}

func (it *SliceIterator[T]) MarkPrev() {
	if it.pos >= 0 && it.pos < len(it.items) {
		it.mark = it.pos
	}
}

func (it *SliceIterator[T]) MarkNext() {
	it.mark = it.pos + 1
}

func (it *SliceIterator[T]) Reset() {
	if it.mark >= 0 {
		it.pos = it.mark - 1
	}
}

// RecordIterator walks the rows of a fixed list of pages in page order, slot order
// within a page. The tuples it yields are zero-copy views of page memory.
type RecordIterator struct {
	pages []*Page
	desc  *RawTupleDesc

	pageIdx, slot         int
	markPageIdx, markSlot int
	marked                bool
}

// NewRecordIterator returns an iterator over every row of pages.
func NewRecordIterator(pages []*Page, desc *RawTupleDesc) *RecordIterator {
	return &RecordIterator{pages: pages, desc: desc, pageIdx: 0, slot: -1}
}

func (it *RecordIterator) Next() bool {
	for it.pageIdx < len(it.pages) {
		if it.slot+1 < it.pages[it.pageIdx].NumRows() {
			it.slot++
			return true
		}
		it.pageIdx++
		it.slot = -1
	}
	return false
}

func (it *RecordIterator) Current() Tuple {
	return FromRawTuple(it.pages[it.pageIdx].Row(it.slot), it.desc)
}

func (it *RecordIterator) Error() error {
	return nil
}

func (it *RecordIterator) Close() error {
	return nil
}

func (it *RecordIterator) MarkPrev() {
	if it.slot < 0 || it.pageIdx >= len(it.pages) {
		return
	}
	it.markPageIdx, it.markSlot, it.marked = it.pageIdx, it.slot, true
}

func (it *RecordIterator) MarkNext() {
	// Positioning one slot before the mark makes the following Next land on it, even
	// when that slot turns out to be on the next page.
	it.markPageIdx, it.markSlot, it.marked = it.pageIdx, it.slot+1, true
}

func (it *RecordIterator) Reset() {
	if !it.marked {
		return
	}
	it.pageIdx, it.slot = it.markPageIdx, it.markSlot-1
}
