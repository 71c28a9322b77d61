package query

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// JoinType names the pairing algorithm of a join.
type JoinType int

const (
	SNLJ JoinType = iota
	PNLJ
	BNLJ
	SortMerge
)

func (t JoinType) String() string {
	switch t {
	case SNLJ:
		return "SNLJ"
	case PNLJ:
		return "PNLJ"
	case BNLJ:
		return "BNLJ"
	case SortMerge:
		return "SORTMERGE"
	}
	return "UNKNOWN"
}

// ParseJoinType maps a case-insensitive strategy name such as "bnlj" or "sortmerge" to its tag.
func ParseJoinType(name string) (JoinType, bool) {
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "")) {
	case "SNLJ":
		return SNLJ, true
	case "PNLJ":
		return PNLJ, true
	case "BNLJ":
		return BNLJ, true
	case "SORTMERGE", "SMJ":
		return SortMerge, true
	}
	return 0, false
}

// NewJoinOperator builds an equi-join of left and right using the given strategy.
func NewJoinOperator(joinType JoinType, left, right Operator, leftColumn, rightColumn string, txn transaction.Context) (Operator, error) {
	var (
		op  Operator
		err error
	)
	switch joinType {
	case SNLJ:
		op, err = NewSNLJOperator(left, right, leftColumn, rightColumn, txn)
	case PNLJ:
		op, err = NewPNLJOperator(left, right, leftColumn, rightColumn, txn)
	case BNLJ:
		op, err = NewBNLJOperator(left, right, leftColumn, rightColumn, txn)
	case SortMerge:
		op, err = NewSortMergeOperator(left, right, leftColumn, rightColumn, txn)
	default:
		return nil, common.NewError(common.InvalidOperationError, "unknown join type %d", joinType)
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

// joinOperator is implemented by every join strategy.
type joinOperator interface {
	Operator
	joinSources() (left, right Operator)
}

// joinBase holds what every equi-join strategy shares: the two sources, the resolved join
// columns and the transaction that temporary tables are created in. A strategy embeds joinBase
// and supplies EstimateIOCost and Iterator.
//
// The output schema is the left schema followed by the right schema. Records are paired on
// equality of the left and right join columns, which must have the same type.
type joinBase struct {
	operatorBase
	joinType    JoinType
	txn         transaction.Context
	left, right Operator

	leftColumnName, rightColumnName   string
	leftColumnIndex, rightColumnIndex int
}

func (j *joinBase) init(left, right Operator, leftColumn, rightColumn string, txn transaction.Context, joinType JoinType) error {
	j.opType = JoinOp
	j.joinType = joinType
	j.txn = txn
	j.left, j.right = left, right

	var err error
	if j.leftColumnName, j.leftColumnIndex, err = CheckSchemaForColumn(left.OutputSchema(), leftColumn); err != nil {
		return err
	}
	if j.rightColumnName, j.rightColumnIndex, err = CheckSchemaForColumn(right.OutputSchema(), rightColumn); err != nil {
		return err
	}
	leftType := left.OutputSchema().Field(j.leftColumnIndex).Type
	rightType := right.OutputSchema().Field(j.rightColumnIndex).Type
	if leftType != rightType {
		return common.NewError(common.TypeMismatchError,
			"Mismatched types of columns %s and %s.", j.leftColumnName, j.rightColumnName)
	}
	return nil
}

// Source always fails: a join has two sources. Use LeftSource and RightSource.
func (j *joinBase) Source() (Operator, error) {
	return nil, common.NewError(common.InvalidOperationError,
		"There is no single source for join operators. Please use LeftSource and RightSource.")
}

func (j *joinBase) ComputeSchema() (*catalog.Schema, error) {
	return j.left.OutputSchema().Concat(j.right.OutputSchema()), nil
}

func (j *joinBase) EstimateStats() (*stats.TableStats, error) {
	return j.left.Stats().CopyWithJoin(j.leftColumnIndex, j.right.Stats(), j.rightColumnIndex), nil
}

func (j *joinBase) JoinType() JoinType {
	return j.joinType
}

func (j *joinBase) LeftSource() Operator {
	return j.left
}

func (j *joinBase) RightSource() Operator {
	return j.right
}

func (j *joinBase) joinSources() (Operator, Operator) {
	return j.left, j.right
}

// LeftColumnName is the fully resolved name of the left join column.
func (j *joinBase) LeftColumnName() string {
	return j.leftColumnName
}

func (j *joinBase) RightColumnName() string {
	return j.rightColumnName
}

func (j *joinBase) LeftColumnIndex() int {
	return j.leftColumnIndex
}

func (j *joinBase) RightColumnIndex() int {
	return j.rightColumnIndex
}

func (j *joinBase) Transaction() transaction.Context {
	return j.txn
}

// GetRecordIterator returns a rewindable iterator over the records of table.
func (j *joinBase) GetRecordIterator(table string) (storage.BacktrackingIterator[storage.Tuple], error) {
	return j.txn.GetRecordIterator(table)
}

// GetPageIterator returns a rewindable iterator over the pages of table.
func (j *joinBase) GetPageIterator(table string) (storage.BacktrackingIterator[*storage.Page], error) {
	return j.txn.GetPageIterator(table)
}

// GetBlockIterator consumes up to maxPages pages of table from pages and iterates over their records.
func (j *joinBase) GetBlockIterator(table string, pages storage.Iterator[*storage.Page], maxPages int) (storage.BacktrackingIterator[storage.Tuple], error) {
	return j.txn.GetBlockIterator(table, pages, maxPages)
}

func (j *joinBase) describe() string {
	return fmt.Sprintf("type: %s (cost: %d)\nleftColumn: %s\nrightColumn: %s",
		j.joinType, j.cost, j.leftColumnName, j.rightColumnName)
}

// joinIterator is the part of a join's record iterator shared by all strategies. It resolves each
// side to a table: a side that already reads a table is used as is, any other side is drained
// into a temporary table first. Every temporary table it or its strategy creates is dropped by
// Close.
type joinIterator struct {
	join                  *joinBase
	leftTable, rightTable string
	temps                 []string

	desc    *storage.RawTupleDesc
	current storage.Tuple
	err     error
	done    bool
}

func newJoinIterator(j *joinBase) (*joinIterator, error) {
	it := &joinIterator{
		join: j,
		desc: storage.NewRawTupleDesc(j.outputSchema.FieldTypes()),
	}
	var err error
	if it.leftTable, err = it.tableFor(j.left, "left"); err != nil {
		return nil, errors.CombineErrors(err, it.Close())
	}
	if it.rightTable, err = it.tableFor(j.right, "right"); err != nil {
		return nil, errors.CombineErrors(err, it.Close())
	}
	return it, nil
}

func (it *joinIterator) tableFor(source Operator, side string) (string, error) {
	if tb, ok := source.(tableBacked); ok {
		return tb.TableName(), nil
	}
	name, n, err := spool(it.join.txn, source)
	if err != nil {
		return "", errors.Wrapf(err, "materializing %s input of %s join", side, it.join.joinType)
	}
	it.temps = append(it.temps, name)
	it.join.txn.Logger().Debug("materialized join input",
		"join", it.join.joinType.String(), "side", side, "source", source.Type().String(), "table", name, "records", n)
	return name, nil
}

// newTemp creates a temporary table owned by the iterator.
func (it *joinIterator) newTemp(schema *catalog.Schema) (string, error) {
	name, err := it.join.txn.CreateTempTable(schema)
	if err != nil {
		return "", err
	}
	it.temps = append(it.temps, name)
	return name, nil
}

// dropTemp drops a temporary table created by newTemp before the iterator is closed.
func (it *joinIterator) dropTemp(name string) error {
	for i, t := range it.temps {
		if t == name {
			it.temps = append(it.temps[:i], it.temps[i+1:]...)
			break
		}
	}
	return it.join.txn.DeleteTempTable(name)
}

func (it *joinIterator) matches(left, right *storage.Tuple) bool {
	return it.compare(left, right) == 0
}

func (it *joinIterator) compare(left, right *storage.Tuple) int {
	return left.GetValue(it.join.leftColumnIndex).Compare(right.GetValue(it.join.rightColumnIndex))
}

// emit builds the joined record. Each record gets its own buffer so callers may hold on to it.
func (it *joinIterator) emit(left, right storage.Tuple) {
	it.current = storage.MergeTuples(make([]byte, it.desc.BytesPerTuple()), it.desc, left, right)
}

// fail records err, if any, and ends the iteration.
func (it *joinIterator) fail(err error) bool {
	if err != nil {
		it.err = err
	}
	it.done = true
	return false
}

func (it *joinIterator) Current() storage.Tuple {
	return it.current
}

func (it *joinIterator) Error() error {
	return it.err
}

func (it *joinIterator) Close() error {
	var err error
	for i := len(it.temps) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, it.join.txn.DeleteTempTable(it.temps[i]))
	}
	it.temps = nil
	it.done = true
	return err
}

