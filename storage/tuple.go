package storage

import (
	"fmt"
	"strings"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// RawTuple represents the "Physical View" of a record.
// It is simply a compact slice of bytes corresponding to the layout on a page. It does not know what data it
// contains. You need a RawTupleDesc to read it.
type RawTuple []byte

// RawTupleDesc describes the physical binary layout of a RawTuple.
type RawTupleDesc struct {
	fields      []common.Type
	offsets     []int // Cache of column_id => physical offset of first byte in RawTuple
	bytesPerRow int   // Width of the row in bytes, padded to a multiple of 8
}

func (desc *RawTupleDesc) String() string {
	return fmt.Sprintf("%v", desc.fields)
}

// NumColumns returns the number of fields in the physical schema.
func (desc *RawTupleDesc) NumColumns() int {
	return len(desc.fields)
}

// BytesPerTuple returns the fixed width in bytes required to store this tuple.
func (desc *RawTupleDesc) BytesPerTuple() int {
	return desc.bytesPerRow
}

// GetFieldType returns the type of the field at index i.
func (desc *RawTupleDesc) GetFieldType(i int) common.Type {
	return desc.fields[i]
}

func (desc *RawTupleDesc) GetFieldTypes() []common.Type {
	return desc.fields
}

// GetFieldOffset returns the byte offset where field i begins.
func (desc *RawTupleDesc) GetFieldOffset(i int) int {
	return desc.offsets[i]
}

// GetValue deserializes the value at index i from the given physical byte slice.
func (desc *RawTupleDesc) GetValue(t RawTuple, i int) common.Value {
	return common.AsValue(desc.fields[i], t[desc.offsets[i]:])
}

// SetValue serializes the value val into the correct position in the physical byte slice t.
func (desc *RawTupleDesc) SetValue(t RawTuple, i int, val common.Value) {
	common.Assert(val.Type() == desc.fields[i], "type mismatch: column %d is %s, value is %s", i, desc.fields[i], val.Type())
	val.WriteTo(t[desc.offsets[i]:])
}

// NewRawTupleDesc creates a descriptor for the given list of field types.
// Fields are packed in order; the row as a whole is padded to 8 bytes.
func NewRawTupleDesc(fields []common.Type) *RawTupleDesc {
	size := 0
	offsetOfField := make([]int, len(fields))
	for i := 0; i < len(fields); i++ {
		offsetOfField[i] = size
		size += fields[i].Size()
	}
	size = common.Align8(size)
	if size == 0 {
		// zero-column rows still occupy a slot
		size = 8
	}
	common.Assert(size <= common.PageSize-pageHeaderSize, "tuple width should never exceed page size")
	return &RawTupleDesc{fields, offsetOfField, size}
}

// Tuple represents the "Logical View" of a record. It is the Record exchanged between query
// operators: every operator's iterator yields Tuples whose columns line up with the operator's
// output schema.
//
// A Tuple is either backed by physically stored bytes (a row read from a page) or purely
// virtual (values assembled by an operator such as a projection). Extend and MergeTuples build
// hybrids and joined rows.
type Tuple struct {
	// rawTuple holds the "Physical View" (raw bytes) if this tuple is backed by a page.
	// If nil, this tuple is purely virtual.
	rawTuple RawTuple
	// rawDesc describes the binary schema of rawTuple. It is required to interpret the bytes.
	rawDesc *RawTupleDesc

	// extraValues holds "Virtual Columns" that are not stored physically.
	extraValues []common.Value
}

// FromRawTuple creates a Tuple backed by physically stored bytes (Zero-Copy).
//
// The caller must not reuse the byte slice while the Tuple is alive; DeepCopy it first
// if the buffer is going to be overwritten.
func FromRawTuple(rawTuple RawTuple, desc *RawTupleDesc) Tuple {
	return Tuple{rawTuple: rawTuple, rawDesc: desc}
}

// FromValues creates a purely virtual Tuple from a list of values.
func FromValues(values ...common.Value) Tuple {
	if values == nil {
		values = []common.Value{}
	}
	return Tuple{
		extraValues: values,
	}
}

// Extend returns a NEW Tuple consisting of the current tuple's fields
// followed by the provided newValues.
func (t *Tuple) Extend(newValues []common.Value) Tuple {
	result := *t
	extra := make([]common.Value, 0, len(t.extraValues)+len(newValues))
	extra = append(extra, t.extraValues...)
	result.extraValues = append(extra, newValues...)
	return result
}

// IsNil checks if the tuple is uninitialized.
func (t *Tuple) IsNil() bool {
	return t.rawDesc == nil && t.extraValues == nil
}

// WriteToBuffer serializes the entire Tuple (Physical + Virtual fields) into a single byte buffer.
//
// This essentially "materializes" a hybrid Tuple into a purely physical RawTuple.
// It is used when a record is appended to a page.
func (t *Tuple) WriteToBuffer(buf []byte, desc *RawTupleDesc) Tuple {
	common.Assert(len(buf) >= desc.BytesPerTuple(), "buffer too small")
	common.Assert(t.NumColumns() == desc.NumColumns(), "tuple descriptor mismatch")

	numPhysicalColumns := 0
	if t.rawDesc != nil {
		numPhysicalColumns = t.rawDesc.NumColumns()
		if t.rawDesc == desc {
			// Fast-path: direct memcpy
			copy(buf, t.rawTuple[:desc.BytesPerTuple()])
		} else {
			for i := 0; i < numPhysicalColumns; i++ {
				desc.SetValue(buf, i, t.rawDesc.GetValue(t.rawTuple, i))
			}
		}
	}

	for i := numPhysicalColumns; i < desc.NumColumns(); i++ {
		// The value is computed/virtual, so we must serialize it.
		desc.SetValue(buf, i, t.extraValues[i-numPhysicalColumns])
	}
	return FromRawTuple(buf, desc)
}

// MergeTuples serializes two tuples (left and right) into a single output buffer.
// It assumes the 'desc' describes the combined schema (Left fields followed by Right fields).
func MergeTuples(buf []byte, desc *RawTupleDesc, left Tuple, right Tuple) Tuple {
	common.Assert(len(buf) >= desc.BytesPerTuple(), "buffer too small")
	common.Assert(left.NumColumns()+right.NumColumns() == desc.NumColumns(), "tuple descriptor mismatch")

	leftNumCols := left.NumColumns()
	rightNumCols := right.NumColumns()
	for i := 0; i < leftNumCols; i++ {
		desc.SetValue(buf, i, left.GetValue(i))
	}
	for i := 0; i < rightNumCols; i++ {
		desc.SetValue(buf, leftNumCols+i, right.GetValue(i))
	}
	return FromRawTuple(buf, desc)
}

// NumColumns returns the total number of fields (Physical + Virtual) in the tuple.
func (t *Tuple) NumColumns() int {
	if t.rawDesc == nil {
		return len(t.extraValues)
	}
	return len(t.extraValues) + t.rawDesc.NumColumns()
}

// GetValue retrieves the value at index i.
func (t *Tuple) GetValue(i int) common.Value {
	physCols := 0
	if t.rawDesc != nil {
		physCols = t.rawDesc.NumColumns()
	}
	if i < physCols {
		return t.rawDesc.GetValue(t.rawTuple, i)
	}
	// The virtual store starts at index 'physCols'
	return t.extraValues[i-physCols]
}

// Values returns every field of the tuple in column order.
func (t *Tuple) Values() []common.Value {
	out := make([]common.Value, t.NumColumns())
	for i := range out {
		out[i] = t.GetValue(i)
	}
	return out
}

// DeepCopy creates a fully independent, physically materialized copy of the Tuple.
//
// Note that this would allocate new memory. It is used when the original buffer might be reused, but should not
// be blindly called for performance reasons.
func (t *Tuple) DeepCopy(desc *RawTupleDesc) Tuple {
	common.Assert(t.NumColumns() == desc.NumColumns(), "tuple descriptor mismatch")
	dest := make([]byte, desc.BytesPerTuple())
	return t.WriteToBuffer(dest, desc)
}

func (t Tuple) String() string {
	parts := make([]string, t.NumColumns())
	for i := range parts {
		v := t.GetValue(i)
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
