package transaction

import (
	"testing"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func makeTestManager(t *testing.T) (*catalog.Catalog, *TableStore, *TransactionManager) {
	provider := catalog.NewMemoryCatalogManager()
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	tableDef, err := c.AddTable("Students", []catalog.Column{
		{Name: "sid", Type: common.IntType},
		{Name: "gpa", Type: common.FloatType},
	}, provider)
	require.NoError(t, err)

	store := NewTableStore(c)
	_, err = store.GetTable(tableDef.Name)
	require.NoError(t, err, "tables already in the catalog get storage eagerly")
	return c, store, NewTransactionManager(store, 5, logger.NewNop())
}

func TestTableStore_CreateAndGet(t *testing.T) {
	provider := catalog.NewMemoryCatalogManager()
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	store := NewTableStore(c)

	tableDef, err := c.AddTable("Courses", []catalog.Column{{Name: "cid", Type: common.IntType}}, provider)
	require.NoError(t, err)
	_, err = store.CreateTable(tableDef)
	require.NoError(t, err)
	_, err = store.CreateTable(tableDef)
	assert.True(t, common.IsErrorCode(err, common.DuplicateObjectError))

	_, err = store.GetTable("Nope")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
}

func TestTransaction_BaseTableAccess(t *testing.T) {
	_, _, tm := makeTestManager(t)
	txn := tm.Begin()
	defer tm.Commit(txn)

	require.NoError(t, txn.AddRecord("Students", []common.Value{common.NewIntValue(1), common.NewFloatValue(3.5)}))
	require.NoError(t, txn.AddRecord("Students", []common.Value{common.NewIntValue(2), common.NewFloatValue(3.9)}))

	err := txn.AddRecord("Students", []common.Value{common.NewIntValue(3)})
	assert.True(t, common.IsErrorCode(err, common.SchemaMismatchError), "wrapped errors keep their code")

	schema, err := txn.GetSchema("Students")
	require.NoError(t, err)
	assert.Equal(t, []string{"sid", "gpa"}, schema.FieldNames())

	qualified, err := txn.GetFullyQualifiedSchema("Students")
	require.NoError(t, err)
	assert.Equal(t, []string{"Students.sid", "Students.gpa"}, qualified.FieldNames())

	pages, err := txn.GetNumDataPages("Students")
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	s, err := txn.GetStats("Students")
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumRecords())

	// Stats follow inserts.
	require.NoError(t, txn.AddRecord("Students", []common.Value{common.NewIntValue(3), common.NewFloatValue(2.0)}))
	s, err = txn.GetStats("Students")
	require.NoError(t, err)
	assert.Equal(t, 3, s.NumRecords())

	it, err := txn.GetRecordIterator("Students")
	require.NoError(t, err)
	var sids []int64
	for it.Next() {
		tup := it.Current()
		v := tup.GetValue(0)
		sids = append(sids, v.IntValue())
	}
	assert.Equal(t, []int64{1, 2, 3}, sids)

	_, err = txn.GetRecordIterator("Missing")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
}

func TestTransaction_TempTables(t *testing.T) {
	_, _, tm := makeTestManager(t)
	log, logs := logger.NewObserved(zapcore.DebugLevel)
	tm.log = log
	txn := tm.Begin()

	schema := catalog.NewSchema([]string{"Students.sid", "x"}, []common.Type{common.IntType, common.IntType})
	first, err := txn.CreateTempTable(schema)
	require.NoError(t, err)
	second, err := txn.CreateTempTable(schema)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{first, second}, txn.TempTableNames())

	require.NoError(t, txn.AddRecord(first, []common.Value{common.NewIntValue(1), common.NewIntValue(2)}))
	qualified, err := txn.GetFullyQualifiedSchema(first)
	require.NoError(t, err)
	assert.Equal(t, []string{"Students.sid", first + ".x"}, qualified.FieldNames())

	require.NoError(t, txn.DeleteTempTable(first))
	assert.Equal(t, []string{second}, txn.TempTableNames())
	err = txn.DeleteTempTable(first)
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
	err = txn.DeleteTempTable("Students")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError), "base tables cannot be dropped")

	require.NoError(t, tm.Commit(txn))
	assert.Empty(t, txn.TempTableNames())
	_, err = txn.GetSchema(second)
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
	_, err = txn.CreateTempTable(schema)
	assert.True(t, common.IsErrorCode(err, common.InvalidOperationError))

	assert.Equal(t, 2, logs.FilterMessage("created temp table").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropped temp table").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropped temp tables on close").Len())
}

func TestTransaction_BlockIterator(t *testing.T) {
	_, _, tm := makeTestManager(t)
	txn := tm.Begin()
	defer tm.Commit(txn)

	for i := 0; i < 2000; i++ {
		require.NoError(t, txn.AddRecord("Students", []common.Value{common.NewIntValue(int32(i)), common.NewFloatValue(0)}))
	}
	numPages, err := txn.GetNumDataPages("Students")
	require.NoError(t, err)
	require.Greater(t, numPages, 3)

	pages, err := txn.GetPageIterator("Students")
	require.NoError(t, err)
	block, err := txn.GetBlockIterator("Students", pages, 3)
	require.NoError(t, err)
	n := 0
	for block.Next() {
		n++
	}
	perPage := (common.PageSize - 8) / 8 // int and float pack into one 8 byte row
	assert.Equal(t, 3*perPage, n)

	_, err = txn.GetBlockIterator("Students", pages, 0)
	assert.True(t, common.IsErrorCode(err, common.InvalidOperationError))
}

func TestTransactionManager_Lifecycle(t *testing.T) {
	_, _, tm := makeTestManager(t)
	a := tm.Begin()
	b := tm.Begin()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, common.InvalidTransactionID, a.ID())
	assert.Equal(t, 5, a.WorkMemSize())
	assert.Equal(t, 2, tm.NumActive())

	require.NoError(t, tm.Commit(a))
	assert.Equal(t, 1, tm.NumActive())
	err := tm.Commit(a)
	assert.True(t, common.IsErrorCode(err, common.InvalidOperationError))
	require.NoError(t, tm.Commit(b))
}
