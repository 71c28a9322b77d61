package catalog

import (
	"testing"

	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentsColumns() []Column {
	return []Column{{Name: "sid", Type: common.IntType}, {Name: "name", Type: common.StringType}}
}

func TestCatalog_AddAndLookup(t *testing.T) {
	provider := NewMemoryCatalogManager()
	c, err := NewCatalog(provider)
	require.NoError(t, err)

	students, err := c.AddTable("Students", studentsColumns(), provider)
	require.NoError(t, err)
	assert.Equal(t, common.ObjectID(1), students.Oid)

	courses, err := c.AddTable("Courses", []Column{{Name: "cid", Type: common.IntType}}, provider)
	require.NoError(t, err)
	assert.Equal(t, common.ObjectID(2), courses.Oid)

	got, err := c.GetTableMetadata("Students")
	require.NoError(t, err)
	assert.Equal(t, students, got)
	assert.Equal(t, "(sid int, name string)", got.Schema().String())

	_, err = c.GetTableMetadata("Nope")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))

	_, err = c.AddTable("Students", studentsColumns(), provider)
	assert.True(t, common.IsErrorCode(err, common.DuplicateObjectError))

	tables := c.FindTablesWithColumnName("sid")
	require.Len(t, tables, 1)
	assert.Equal(t, "Students", tables[0].Name)
}

func TestCatalog_Reload(t *testing.T) {
	for name, provider := range map[string]PersistenceProvider{
		"memory": NewMemoryCatalogManager(),
		"disk":   NewDiskCatalogManager(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCatalog(provider)
			require.NoError(t, err)
			_, err = c.AddTable("Students", studentsColumns(), provider)
			require.NoError(t, err)

			reloaded, err := NewCatalog(provider)
			require.NoError(t, err)
			table, err := reloaded.GetTableMetadata("Students")
			require.NoError(t, err)
			assert.Equal(t, studentsColumns(), table.Columns)

			// Object ids keep increasing after a reload.
			next, err := reloaded.AddTable("Enrollments", []Column{{Name: "sid", Type: common.IntType}}, provider)
			require.NoError(t, err)
			assert.Equal(t, common.ObjectID(2), next.Oid)
			assert.Len(t, reloaded.FindTablesWithColumnName("sid"), 2)
		})
	}
}

func TestSchema_Operations(t *testing.T) {
	s := NewSchema([]string{"a", "t.b"}, []common.Type{common.IntType, common.StringType})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "t.b"}, s.FieldNames())
	assert.Equal(t, []common.Type{common.IntType, common.StringType}, s.FieldTypes())
	assert.Equal(t, 1, s.IndexOf("t.b"))
	assert.Equal(t, -1, s.IndexOf("b"))

	q := s.Qualify("r")
	assert.Equal(t, []string{"r.a", "t.b"}, q.FieldNames())
	assert.Equal(t, []string{"a", "t.b"}, s.FieldNames(), "Qualify must not modify the receiver")

	other := NewSchema([]string{"c"}, []common.Type{common.FloatType})
	joined := s.Concat(other)
	assert.Equal(t, []string{"a", "t.b", "c"}, joined.FieldNames())
	assert.Equal(t, common.FloatType, joined.Field(2).Type)

	p := joined.Project([]int{2, 0})
	assert.Equal(t, []string{"c", "a"}, p.FieldNames())

	assert.True(t, s.Equal(NewSchema([]string{"a", "t.b"}, []common.Type{common.IntType, common.StringType})))
	assert.False(t, s.Equal(q))
	assert.False(t, s.Equal(joined))
}
