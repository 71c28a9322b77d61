package query

import (
	"math"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// groupTable maps the values of a grouping column to per-group state. Keys are hashed by their
// fixed-width encoding after canonicalKey, so two keys share an entry exactly when
// common.Value.Compare reports them equal.
type groupTable[T any] struct {
	entries map[string]T
	keyType common.Type
	// scratch holds the encoding of the key being looked up
	scratch []byte
}

func newGroupTable[T any](keyType common.Type) *groupTable[T] {
	return &groupTable[T]{
		entries: make(map[string]T),
		keyType: keyType,
		scratch: make([]byte, keyType.Size()),
	}
}

// GetOrCreate returns the entry of key's group. When the group is new, create builds its entry
// and created is true; if create fails nothing is stored.
func (g *groupTable[T]) GetOrCreate(key common.Value, create func() (T, error)) (entry T, created bool, err error) {
	common.Assert(key.Type() == g.keyType, "group key of type %s in a %s table", key.Type(), g.keyType)
	canonicalKey(key).WriteTo(g.scratch)
	if entry, ok := g.entries[string(g.scratch)]; ok {
		return entry, false, nil
	}
	if entry, err = create(); err != nil {
		return entry, false, err
	}
	g.entries[string(g.scratch)] = entry
	return entry, true, nil
}

func (g *groupTable[T]) Len() int {
	return len(g.entries)
}

// canonicalKey folds the float encodings that compare equal: -0 onto +0 and every NaN onto one
// NaN.
func canonicalKey(v common.Value) common.Value {
	if v.Type() != common.FloatType {
		return v
	}
	switch f := v.FloatValue(); {
	case f == 0:
		return common.NewFloatValue(0)
	case math.IsNaN(float64(f)):
		return common.NewFloatValue(float32(math.NaN()))
	}
	return v
}
