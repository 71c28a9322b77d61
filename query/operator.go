package query

import (
	"fmt"
	"strings"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
)

// OperatorType is the discriminant tag of a node in an operator tree.
type OperatorType int

const (
	JoinOp OperatorType = iota
	ProjectOp
	SelectOp
	GroupByOp
	SequentialScanOp
	MaterializeOp
)

func (t OperatorType) String() string {
	switch t {
	case JoinOp:
		return "JOIN"
	case ProjectOp:
		return "PROJECT"
	case SelectOp:
		return "SELECT"
	case GroupByOp:
		return "GROUPBY"
	case SequentialScanOp:
		return "SEQSCAN"
	case MaterializeOp:
		return "MATERIALIZE"
	}
	return "UNKNOWN"
}

// RecordIterator is the pull sequence of records an operator produces. Every record it yields
// lines up with the operator's OutputSchema.
type RecordIterator = storage.Iterator[storage.Tuple]

// Operator is a node of a query plan.
//
// An operator is built with its sources already built. The output schema, stats and I/O cost are
// computed once by the constructor and never change afterwards; to re-parent a node, build a new
// one. Construction is where plan errors surface, so constructors return an error rather than a
// half-initialized operator.
type Operator interface {
	Type() OperatorType
	// OutputSchema returns the schema computed at construction.
	OutputSchema() *catalog.Schema
	// ComputeSchema derives the output schema from the sources. It has no side effects.
	ComputeSchema() (*catalog.Schema, error)

	// Source returns the single upstream operator, or nil for a leaf. Two-sided operators fail.
	Source() (Operator, error)
	// Destination is the consumer set by whoever assembled the tree. Operators never consult it.
	Destination() Operator
	SetDestination(dest Operator)

	// Stats and IOCost return the values computed at construction.
	Stats() *stats.TableStats
	IOCost() int
	// EstimateStats and EstimateIOCost derive stats and cost from the sources'.
	EstimateStats() (*stats.TableStats, error)
	EstimateIOCost() int

	// Iterator starts a new pass over the operator's output. Whether more than one pass may be
	// in flight, or whether a second pass is possible at all, depends on the operator.
	Iterator() (RecordIterator, error)

	// String renders the operator and, indented below it, its sources.
	String() string

	// describe renders this node alone, without its sources.
	describe() string
}

// operatorBase carries the state shared by every operator kind.
type operatorBase struct {
	opType       OperatorType
	source       Operator
	destination  Operator
	outputSchema *catalog.Schema
	stats        *stats.TableStats
	cost         int
}

func (op *operatorBase) Type() OperatorType {
	return op.opType
}

func (op *operatorBase) OutputSchema() *catalog.Schema {
	return op.outputSchema
}

func (op *operatorBase) Source() (Operator, error) {
	return op.source, nil
}

func (op *operatorBase) Destination() Operator {
	return op.destination
}

func (op *operatorBase) SetDestination(dest Operator) {
	op.destination = dest
}

func (op *operatorBase) Stats() *stats.TableStats {
	return op.stats
}

func (op *operatorBase) IOCost() int {
	return op.cost
}

func (op *operatorBase) describe() string {
	return fmt.Sprintf("type: %s (cost: %d)", op.opType, op.cost)
}

// finish computes the schema, stats and cost of a freshly built operator, in that order, since
// stats and cost may depend on the schema.
func finish(op Operator, base *operatorBase) error {
	schema, err := op.ComputeSchema()
	if err != nil {
		return err
	}
	base.outputSchema = schema
	s, err := op.EstimateStats()
	if err != nil {
		return err
	}
	base.stats = s
	base.cost = op.EstimateIOCost()
	return nil
}

// render prints op followed by its sources, each indented by one tab. Two-sided operators label
// their sources.
func render(op Operator) string {
	var sb strings.Builder
	sb.WriteString(op.describe())
	switch node := op.(type) {
	case joinOperator:
		left, right := node.joinSources()
		sb.WriteString("\n" + indent("(left)\n"+left.String()))
		sb.WriteString("\n\n" + indent("(right)\n"+right.String()))
	default:
		if src, _ := op.Source(); src != nil {
			sb.WriteString("\n" + indent(src.String()))
		}
	}
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "\t" + line
	}
	return strings.Join(lines, "\n")
}

// CheckColumnNameEquality reports whether the reference specified names the schema field
// fromSchema: either the two are identical, or specified is unqualified and equals the part of
// fromSchema after its table qualifier.
func CheckColumnNameEquality(fromSchema, specified string) bool {
	if fromSchema == specified {
		return true
	}
	if strings.Contains(specified, ".") {
		return false
	}
	column := fromSchema
	if _, after, found := strings.Cut(fromSchema, "."); found {
		column, _, _ = strings.Cut(after, ".")
	}
	return column == specified
}

// CheckSchemaForColumn resolves a possibly unqualified column reference against schema and
// returns the name and position of the single matching field.
func CheckSchemaForColumn(schema *catalog.Schema, column string) (string, int, error) {
	foundName, foundIdx := "", -1
	for i, name := range schema.FieldNames() {
		if !CheckColumnNameEquality(name, column) {
			continue
		}
		if foundIdx >= 0 {
			return "", -1, common.NewError(common.AmbiguousColumnError,
				"Column %s specified twice without disambiguation.", column)
		}
		foundName, foundIdx = name, i
	}
	if foundIdx < 0 {
		return "", -1, common.NewError(common.ColumnNotFoundError, "No column %s found.", column)
	}
	return foundName, foundIdx, nil
}

// tableBacked is implemented by operators whose output already sits in a page-addressable table,
// which a join can iterate directly instead of spooling.
type tableBacked interface {
	Operator
	TableName() string
}
