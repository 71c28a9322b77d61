package stats

import (
	"math"
	"slices"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// DefaultNumBuckets is the bucket count used when statistics are collected from a table.
const DefaultNumBuckets = 10

// Histogram is an equi-depth histogram over the numeric projection (common.Value.Float) of a
// column. Runs of equal values are never split across buckets. Counts are kept as floats so
// that estimates can be scaled without rounding at every step of a plan.
type Histogram struct {
	Buckets []Bucket
}

// Bucket covers the closed interval [Lower, Upper].
type Bucket struct {
	Lower, Upper float64
	Count        float64
	Distinct     float64
}

func (b Bucket) contains(x float64) bool {
	return b.Lower <= x && x <= b.Upper
}

// equalShare is the expected number of rows in the bucket equal to any single value inside it.
func (b Bucket) equalShare() float64 {
	if b.Distinct <= 0 {
		return 0
	}
	return b.Count / b.Distinct
}

// fractionBelow estimates the fraction of the bucket's rows that are < x, or <= x when
// inclusive. Values are assumed uniform across the bucket.
func (b Bucket) fractionBelow(x float64, inclusive bool) float64 {
	if b.Count <= 0 || x < b.Lower {
		return 0
	}
	if x > b.Upper {
		return 1
	}
	var frac float64
	if width := b.Upper - b.Lower; width > 0 {
		frac = (x - b.Lower) / width
	}
	if inclusive {
		frac += b.equalShare() / b.Count
	}
	return math.Min(frac, 1)
}

// NewHistogram builds a histogram of at most numBuckets buckets from the given values. It can
// have fewer, because every bucket takes ceil(len/numBuckets) values plus the rest of any run
// of equal values it cuts into.
func NewHistogram(values []common.Value, numBuckets int) *Histogram {
	common.Assert(numBuckets > 0, "histogram needs at least one bucket")
	if len(values) == 0 {
		return &Histogram{Buckets: []Bucket{}}
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = v.Float()
	}
	slices.Sort(xs)

	// Buckets hold about len/numBuckets values each but are always cut between two different
	// values, so a value belongs to exactly one bucket and per-bucket distinct counts add up.
	perBucket := (len(xs) + numBuckets - 1) / numBuckets
	buckets := make([]Bucket, 0, numBuckets)
	for start := 0; start < len(xs); {
		end := min(start+perBucket, len(xs))
		for end < len(xs) && xs[end] == xs[end-1] {
			end++
		}
		part := xs[start:end]
		buckets = append(buckets, Bucket{
			Lower:    part[0],
			Upper:    part[len(part)-1],
			Count:    float64(len(part)),
			Distinct: float64(countDistinct(part)),
		})
		start = end
	}
	return &Histogram{Buckets: buckets}
}

func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return distinct
}

// Count returns the number of rows the histogram describes.
func (h *Histogram) Count() float64 {
	total := 0.0
	for _, b := range h.Buckets {
		total += b.Count
	}
	return total
}

// NumDistinct estimates the number of distinct values in the column.
func (h *Histogram) NumDistinct() float64 {
	total := 0.0
	for _, b := range h.Buckets {
		total += b.Distinct
	}
	return total
}

// Selectivity estimates the fraction of rows satisfying "column op v".
func (h *Histogram) Selectivity(op common.PredicateOperator, v common.Value) float64 {
	total := h.Count()
	if total == 0 {
		return 0
	}
	x := v.Float()
	var matching float64
	switch op {
	case common.Equals, common.NotEquals:
		for _, b := range h.Buckets {
			if b.contains(x) {
				matching += b.equalShare()
			}
		}
		if op == common.NotEquals {
			matching = total - matching
		}
	case common.LessThan, common.LessThanEquals:
		for _, b := range h.Buckets {
			matching += b.Count * b.fractionBelow(x, op == common.LessThanEquals)
		}
	case common.GreaterThan, common.GreaterThanEquals:
		for _, b := range h.Buckets {
			matching += b.Count * (1 - b.fractionBelow(x, op == common.GreaterThan))
		}
	}
	return math.Max(0, math.Min(matching/total, 1))
}

// CopyWithPredicate returns the histogram of the rows that satisfy "column op v".
func (h *Histogram) CopyWithPredicate(op common.PredicateOperator, v common.Value) *Histogram {
	x := v.Float()
	out := make([]Bucket, 0, len(h.Buckets))
	for _, b := range h.Buckets {
		nb := b
		switch op {
		case common.Equals:
			if !b.contains(x) {
				continue
			}
			nb = Bucket{Lower: x, Upper: x, Count: b.equalShare(), Distinct: 1}
		case common.NotEquals:
			if b.contains(x) {
				nb.Count -= b.equalShare()
				nb.Distinct = math.Max(b.Distinct-1, 0)
			}
		case common.LessThan, common.LessThanEquals:
			frac := b.fractionBelow(x, op == common.LessThanEquals)
			nb.Count, nb.Distinct = b.Count*frac, b.Distinct*frac
			nb.Upper = math.Min(b.Upper, x)
		case common.GreaterThan, common.GreaterThanEquals:
			frac := 1 - b.fractionBelow(x, op == common.GreaterThan)
			nb.Count, nb.Distinct = b.Count*frac, b.Distinct*frac
			nb.Lower = math.Max(b.Lower, x)
		}
		if nb.Count <= 0 {
			continue
		}
		nb.Distinct = math.Max(1, math.Min(nb.Distinct, nb.Count))
		out = append(out, nb)
	}
	return &Histogram{Buckets: out}
}

// CopyWithReduction scales every bucket by factor, which is expected to be in [0, 1] but may
// exceed 1 when a join multiplies rows. Distinct counts never exceed row counts.
func (h *Histogram) CopyWithReduction(factor float64) *Histogram {
	out := make([]Bucket, 0, len(h.Buckets))
	for _, b := range h.Buckets {
		nb := b
		nb.Count = b.Count * factor
		if nb.Count <= 0 {
			continue
		}
		nb.Distinct = math.Max(1, math.Min(b.Distinct, nb.Count))
		out = append(out, nb)
	}
	return &Histogram{Buckets: out}
}
