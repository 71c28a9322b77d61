package query

import (
	"math"
	"testing"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/foxtrot9/fa20-moocbase/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	provider *catalog.MemoryCatalogManager
	catalog  *catalog.Catalog
	store    *transaction.TableStore
	txn      *transaction.Transaction
}

func newFixture(t *testing.T, workMem int) *fixture {
	return newFixtureWithLogger(t, workMem, logger.NewNop())
}

func newFixtureWithLogger(t *testing.T, workMem int, log *logger.Logger) *fixture {
	provider := catalog.NewMemoryCatalogManager()
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	store := transaction.NewTableStore(c)
	tm := transaction.NewTransactionManager(store, workMem, log)
	txn := tm.Begin()
	t.Cleanup(func() {
		require.NoError(t, tm.Commit(txn))
	})
	return &fixture{t: t, provider: provider, catalog: c, store: store, txn: txn}
}

func (f *fixture) createTable(name string, cols ...catalog.Column) {
	tableDef, err := f.catalog.AddTable(name, cols, f.provider)
	require.NoError(f.t, err)
	_, err = f.store.CreateTable(tableDef)
	require.NoError(f.t, err)
}

func (f *fixture) insert(name string, values ...common.Value) {
	require.NoError(f.t, f.txn.AddRecord(name, values))
}

func (f *fixture) scan(name string) *SequentialScanOperator {
	op, err := NewSequentialScanOperator(f.txn, name)
	require.NoError(f.t, err)
	return op
}

// loadStudents creates Students(sid, gpa) = {(1, 3.5), (2, 3.9)} and
// Enrollments(sid, cid) = {(1, 10), (1, 20), (2, 10)}.
func (f *fixture) loadStudents() {
	f.createTable("Students",
		catalog.Column{Name: "sid", Type: common.IntType},
		catalog.Column{Name: "gpa", Type: common.FloatType})
	f.createTable("Enrollments",
		catalog.Column{Name: "sid", Type: common.IntType},
		catalog.Column{Name: "cid", Type: common.IntType})
	f.insert("Students", common.NewIntValue(1), common.NewFloatValue(3.5))
	f.insert("Students", common.NewIntValue(2), common.NewFloatValue(3.9))
	f.insert("Enrollments", common.NewIntValue(1), common.NewIntValue(10))
	f.insert("Enrollments", common.NewIntValue(1), common.NewIntValue(20))
	f.insert("Enrollments", common.NewIntValue(2), common.NewIntValue(10))
}

// drain runs op to completion and returns its records rendered as strings.
func drain(t *testing.T, op Operator) []string {
	it, err := op.Iterator()
	require.NoError(t, err)
	rows := drainIterator(t, it)
	require.NoError(t, it.Close())
	return rows
}

func drainIterator(t *testing.T, it RecordIterator) []string {
	rows := make([]string, 0)
	for it.Next() {
		tup := it.Current()
		rows = append(rows, tup.String())
	}
	require.NoError(t, it.Error())
	return rows
}

func TestCheckColumnNameEquality(t *testing.T) {
	testCases := []struct {
		fromSchema, specified string
		want                  bool
	}{
		{"a", "a", true},
		{"t.a", "t.a", true},
		{"t.a", "a", true},
		{"a", "t.a", false},
		{"t.a", "s.a", false},
		{"t.ab", "a", false},
		{"t.a", "b", false},
	}
	for _, tc := range testCases {
		t.Run(tc.fromSchema+"/"+tc.specified, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckColumnNameEquality(tc.fromSchema, tc.specified))
		})
	}
}

func TestCheckSchemaForColumn(t *testing.T) {
	schema := catalog.NewSchema([]string{"a", "t.b"}, []common.Type{common.IntType, common.StringType})

	testCases := []struct {
		column   string
		wantName string
		wantIdx  int
		wantCode common.GoDBErrorCode
		wantErr  bool
	}{
		{column: "a", wantName: "a", wantIdx: 0},
		{column: "b", wantName: "t.b", wantIdx: 1},
		{column: "t.b", wantName: "t.b", wantIdx: 1},
		{column: "c", wantErr: true, wantCode: common.ColumnNotFoundError},
		{column: "s.b", wantErr: true, wantCode: common.ColumnNotFoundError},
	}
	for _, tc := range testCases {
		t.Run(tc.column, func(t *testing.T) {
			name, idx, err := CheckSchemaForColumn(schema, tc.column)
			if tc.wantErr {
				assert.True(t, common.IsErrorCode(err, tc.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantIdx, idx)
		})
	}

	t.Run("ambiguous", func(t *testing.T) {
		dup := catalog.NewSchema([]string{"t1.x", "t2.x"}, []common.Type{common.IntType, common.IntType})
		_, _, err := CheckSchemaForColumn(dup, "x")
		assert.True(t, common.IsErrorCode(err, common.AmbiguousColumnError), "got %v", err)
		assert.Contains(t, err.Error(), "Column x specified twice without disambiguation.")

		name, idx, err := CheckSchemaForColumn(dup, "t2.x")
		require.NoError(t, err)
		assert.Equal(t, "t2.x", name)
		assert.Equal(t, 1, idx)
	})

	t.Run("not found message", func(t *testing.T) {
		_, _, err := CheckSchemaForColumn(schema, "c")
		assert.Contains(t, err.Error(), "No column c found.")
	})
}

func TestSequentialScan(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()

	scan := f.scan("Students")
	assert.Equal(t, SequentialScanOp, scan.Type())
	assert.Equal(t, "Students", scan.TableName())
	assert.Equal(t, []string{"Students.sid", "Students.gpa"}, scan.OutputSchema().FieldNames())
	assert.Equal(t, 1, scan.IOCost())
	assert.Equal(t, 2, scan.Stats().NumRecords())
	src, err := scan.Source()
	require.NoError(t, err)
	assert.Nil(t, src)

	want := []string{"[1, 3.5]", "[2, 3.9]"}
	assert.Equal(t, want, drain(t, scan))
	assert.Equal(t, want, drain(t, scan), "scans can be re-run")

	_, err = NewSequentialScanOperator(f.txn, "Missing")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
}

func TestSelect(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()
	scan := f.scan("Enrollments")

	sel, err := NewSelectOperator(scan, "cid", common.Equals, common.NewIntValue(10))
	require.NoError(t, err)
	assert.Equal(t, SelectOp, sel.Type())
	assert.True(t, sel.OutputSchema().Equal(scan.OutputSchema()))
	assert.Equal(t, scan.IOCost(), sel.IOCost())
	assert.LessOrEqual(t, sel.Stats().NumRecords(), scan.Stats().NumRecords())
	assert.Equal(t, []string{"[1, 10]", "[2, 10]"}, drain(t, sel))

	src, err := sel.Source()
	require.NoError(t, err)
	assert.Same(t, Operator(scan), src)

	testCases := []struct {
		op   common.PredicateOperator
		want []string
	}{
		{common.NotEquals, []string{"[1, 20]"}},
		{common.LessThan, []string{"[1, 10]", "[2, 10]"}},
		{common.LessThanEquals, []string{"[1, 10]", "[1, 20]", "[2, 10]"}},
		{common.GreaterThan, []string{}},
		{common.GreaterThanEquals, []string{"[1, 20]"}},
	}
	for _, tc := range testCases {
		t.Run(tc.op.String(), func(t *testing.T) {
			sel, err := NewSelectOperator(scan, "Enrollments.cid", tc.op, common.NewIntValue(20))
			require.NoError(t, err)
			assert.Equal(t, tc.want, drain(t, sel))
		})
	}

	t.Run("errors", func(t *testing.T) {
		_, err := NewSelectOperator(scan, "cid", common.Equals, common.NewStringValue("10"))
		assert.True(t, common.IsErrorCode(err, common.TypeMismatchError), "got %v", err)
		_, err = NewSelectOperator(scan, "nope", common.Equals, common.NewIntValue(10))
		assert.True(t, common.IsErrorCode(err, common.ColumnNotFoundError), "got %v", err)
	})
}

func TestProject(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()
	scan := f.scan("Students")

	p, err := NewProjectOperator(scan, []string{"gpa", "Students.sid", "sid"})
	require.NoError(t, err)
	assert.Equal(t, ProjectOp, p.Type())
	assert.Equal(t, []string{"Students.gpa", "Students.sid", "Students.sid"}, p.OutputSchema().FieldNames())
	assert.Equal(t, 3, p.Stats().NumColumns())
	assert.Equal(t, 2, p.Stats().NumRecords())
	assert.Equal(t, []string{"[3.5, 1, 1]", "[3.9, 2, 2]"}, drain(t, p))

	_, err = NewProjectOperator(scan, []string{"gpa", "major"})
	assert.True(t, common.IsErrorCode(err, common.ColumnNotFoundError))
	_, err = NewProjectOperator(scan, nil)
	assert.True(t, common.IsErrorCode(err, common.InvalidOperationError))
}

func TestGroupBy(t *testing.T) {
	f := newFixture(t, 5)
	f.createTable("Grades",
		catalog.Column{Name: "sid", Type: common.IntType},
		catalog.Column{Name: "grade", Type: common.StringType})
	for _, row := range []struct {
		sid   int32
		grade string
	}{{1, "A"}, {2, "B"}, {3, "A"}, {4, "C"}, {5, "B"}, {6, "A"}} {
		f.insert("Grades", common.NewIntValue(row.sid), common.NewStringValue(row.grade))
	}

	g, err := NewGroupByOperator(f.scan("Grades"), f.txn, "grade")
	require.NoError(t, err)
	assert.Equal(t, GroupByOp, g.Type())
	assert.Equal(t, 1+2*1, g.IOCost())

	it, err := g.Iterator()
	require.NoError(t, err)
	assert.Len(t, f.txn.TempTableNames(), 3, "one table per group")
	rows := drainIterator(t, it)
	assert.Equal(t, []string{"[1, A]", "[3, A]", "[6, A]", "[2, B]", "[5, B]", "[4, C]"}, rows)
	require.NoError(t, it.Close())
	assert.Empty(t, f.txn.TempTableNames())

	_, err = NewGroupByOperator(f.scan("Grades"), f.txn, "nope")
	assert.True(t, common.IsErrorCode(err, common.ColumnNotFoundError))
}

func TestGroupBy_FloatKeysGroupByComparison(t *testing.T) {
	f := newFixture(t, 5)
	f.createTable("Readings",
		catalog.Column{Name: "id", Type: common.IntType},
		catalog.Column{Name: "x", Type: common.FloatType})
	negZero := float32(math.Copysign(0, -1))
	nan := float32(math.NaN())
	for i, x := range []float32{0, negZero, 1.5, negZero, nan, -nan} {
		f.insert("Readings", common.NewIntValue(int32(i+1)), common.NewFloatValue(x))
	}

	g, err := NewGroupByOperator(f.scan("Readings"), f.txn, "x")
	require.NoError(t, err)
	it, err := g.Iterator()
	require.NoError(t, err)
	assert.Len(t, f.txn.TempTableNames(), 3, "0 and -0 share a group, as do all NaNs")
	assert.Equal(t, []string{"[1, 0]", "[2, -0]", "[4, -0]", "[3, 1.5]", "[5, NaN]", "[6, NaN]"}, drainIterator(t, it))
	require.NoError(t, it.Close())
}

func TestGroupTable_GetOrCreate(t *testing.T) {
	groups := newGroupTable[int](common.StringType)
	calls := 0
	create := func() (int, error) {
		calls++
		return calls, nil
	}
	for _, tc := range []struct {
		key     string
		entry   int
		created bool
	}{{"a", 1, true}, {"b", 2, true}, {"a", 1, false}, {"b", 2, false}, {"c", 3, true}} {
		entry, created, err := groups.GetOrCreate(common.NewStringValue(tc.key), create)
		require.NoError(t, err)
		assert.Equal(t, tc.entry, entry, tc.key)
		assert.Equal(t, tc.created, created, tc.key)
	}
	assert.Equal(t, 3, groups.Len())

	failing := func() (int, error) { return 0, common.NewError(common.InvalidOperationError, "no room") }
	_, created, err := groups.GetOrCreate(common.NewStringValue("d"), failing)
	assert.True(t, common.IsErrorCode(err, common.InvalidOperationError))
	assert.False(t, created)
	assert.Equal(t, 3, groups.Len(), "a failed create stores nothing")
}

func TestMaterialize(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()
	sel, err := NewSelectOperator(f.scan("Enrollments"), "sid", common.Equals, common.NewIntValue(1))
	require.NoError(t, err)

	m, err := NewMaterializeOperator(sel, f.txn)
	require.NoError(t, err)
	assert.Equal(t, MaterializeOp, m.Type())
	assert.Equal(t, []string{m.TableName()}, f.txn.TempTableNames())
	assert.True(t, m.OutputSchema().Equal(sel.OutputSchema()))
	assert.Equal(t, sel.IOCost()+2*sel.Stats().NumPages(), m.IOCost())

	want := []string{"[1, 10]", "[1, 20]"}
	assert.Equal(t, want, drain(t, m))
	assert.Equal(t, want, drain(t, m))

	// The spooled table does not follow later inserts into the base table.
	f.insert("Enrollments", common.NewIntValue(1), common.NewIntValue(30))
	assert.Equal(t, want, drain(t, m))
}

func TestOperatorString(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()

	sel, err := NewSelectOperator(f.scan("Students"), "gpa", common.GreaterThan, common.NewFloatValue(3.6))
	require.NoError(t, err)
	assert.Equal(t, "type: SELECT (cost: 1)\n"+
		"column: Students.gpa\n"+
		"operator: >\n"+
		"value: 3.6\n"+
		"\ttype: SEQSCAN (cost: 1)\n"+
		"\ttable: Students", sel.String())

	join, err := NewSNLJOperator(f.scan("Students"), f.scan("Enrollments"), "sid", "sid", f.txn)
	require.NoError(t, err)
	assert.Equal(t, "type: SNLJ (cost: 3)\n"+
		"leftColumn: Students.sid\n"+
		"rightColumn: Enrollments.sid\n"+
		"\t(left)\n"+
		"\ttype: SEQSCAN (cost: 1)\n"+
		"\ttable: Students\n"+
		"\n"+
		"\t(right)\n"+
		"\ttype: SEQSCAN (cost: 1)\n"+
		"\ttable: Enrollments", join.String())

	p, err := NewProjectOperator(join, []string{"cid"})
	require.NoError(t, err)
	lines := p.String()
	assert.Contains(t, lines, "type: PROJECT (cost: 3)\ncolumns: [Enrollments.cid]\n\ttype: SNLJ (cost: 3)")
	assert.Contains(t, lines, "\n\t\t(left)\n\t\ttype: SEQSCAN (cost: 1)")
}

func TestDestinationIsInformational(t *testing.T) {
	f := newFixture(t, 5)
	f.loadStudents()
	scan := f.scan("Students")
	p, err := NewProjectOperator(scan, []string{"sid"})
	require.NoError(t, err)

	assert.Nil(t, scan.Destination())
	scan.SetDestination(p)
	assert.Same(t, Operator(p), scan.Destination())
	assert.Equal(t, []string{"[1]", "[2]"}, drain(t, p))
}
