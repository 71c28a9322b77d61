package storage

import (
	"encoding/binary"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// Page Layout:
// RowSize (2) | NumRows (2) | Padding (4) | rows
//
// Rows are packed back to back in insertion order. Pages belong to exactly one heap
// file and are never compacted, so the slot of a row is stable for its lifetime.
const (
	pageOffsetRowSize = 0
	pageOffsetNumRows = pageOffsetRowSize + 2
)
const pageHeaderSize = 8

// Page is a fixed-size frame of records.
type Page struct {
	// Bytes holds the raw physical data of the page.
	Bytes   [common.PageSize]byte
	pageNum int
}

// PageCapacity returns how many rows of the given layout fit on one page.
func PageCapacity(desc *RawTupleDesc) int {
	return (common.PageSize - pageHeaderSize) / desc.BytesPerTuple()
}

// NewPage returns an empty page formatted for rows of the given layout.
func NewPage(desc *RawTupleDesc, pageNum int) *Page {
	p := &Page{pageNum: pageNum}
	binary.LittleEndian.PutUint16(p.Bytes[pageOffsetRowSize:], uint16(desc.BytesPerTuple()))
	return p
}

// PageNum returns the position of the page within its heap file.
func (p *Page) PageNum() int {
	return p.pageNum
}

func (p *Page) RowSize() int {
	return int(binary.LittleEndian.Uint16(p.Bytes[pageOffsetRowSize:]))
}

func (p *Page) NumRows() int {
	return int(binary.LittleEndian.Uint16(p.Bytes[pageOffsetNumRows:]))
}

func (p *Page) setNumRows(n int) {
	binary.LittleEndian.PutUint16(p.Bytes[pageOffsetNumRows:], uint16(n))
}

// NumSlots returns the number of rows the page can hold.
func (p *Page) NumSlots() int {
	return (common.PageSize - pageHeaderSize) / p.RowSize()
}

func (p *Page) IsFull() bool {
	return p.NumRows() == p.NumSlots()
}

// Row returns a zero-copy view of the row in the given slot.
func (p *Page) Row(slot int) RawTuple {
	common.Assert(slot >= 0 && slot < p.NumRows(), "slot %d out of range on page %d", slot, p.pageNum)
	start := pageHeaderSize + slot*p.RowSize()
	return p.Bytes[start : start+p.RowSize()]
}

// Append copies the row into the next free slot. It returns -1 if the page is full.
func (p *Page) Append(row RawTuple) int {
	common.Assert(len(row) >= p.RowSize(), "row too short for page layout")
	slot := p.NumRows()
	if slot == p.NumSlots() {
		return -1
	}
	start := pageHeaderSize + slot*p.RowSize()
	copy(p.Bytes[start:start+p.RowSize()], row)
	p.setNumRows(slot + 1)
	return slot
}
