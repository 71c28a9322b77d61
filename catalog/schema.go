package catalog

import (
	"strings"

	"github.com/foxtrot9/fa20-moocbase/common"
)

// Column represents the basic unit of a table schema.
type Column struct {
	Name string      `json:"name"`
	Type common.Type `json:"type"`
}

func (c Column) String() string {
	return c.Name + " " + c.Type.String()
}

// Schema is an ordered list of named, typed columns. Names are not required to be unique;
// resolving a reference against a schema is the job of the query layer.
//
// A Schema is never modified after construction. Concat, Project and Qualify all return new
// schemas.
type Schema struct {
	columns []Column
}

// NewSchema zips names and types into a schema.
func NewSchema(names []string, types []common.Type) *Schema {
	common.Assert(len(names) == len(types), "schema has %d names but %d types", len(names), len(types))
	cols := make([]Column, len(names))
	for i := range names {
		cols[i] = Column{Name: names[i], Type: types[i]}
	}
	return &Schema{columns: cols}
}

// NewSchemaFromColumns copies cols into a schema.
func NewSchemaFromColumns(cols []Column) *Schema {
	return &Schema{columns: append([]Column(nil), cols...)}
}

func (s *Schema) Len() int {
	return len(s.columns)
}

func (s *Schema) Field(i int) Column {
	return s.columns[i]
}

func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

func (s *Schema) FieldTypes() []common.Type {
	types := make([]common.Type, len(s.columns))
	for i, c := range s.columns {
		types[i] = c.Type
	}
	return types
}

// IndexOf returns the position of the first column whose name is exactly name, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, c := range s.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Concat returns the columns of s followed by the columns of other.
func (s *Schema) Concat(other *Schema) *Schema {
	cols := make([]Column, 0, len(s.columns)+len(other.columns))
	cols = append(cols, s.columns...)
	cols = append(cols, other.columns...)
	return &Schema{columns: cols}
}

// Project returns the columns at the given positions, in the given order.
func (s *Schema) Project(indices []int) *Schema {
	cols := make([]Column, len(indices))
	for i, idx := range indices {
		cols[i] = s.columns[idx]
	}
	return &Schema{columns: cols}
}

// Qualify prefixes every unqualified column name with "table.".
func (s *Schema) Qualify(table string) *Schema {
	cols := make([]Column, len(s.columns))
	for i, c := range s.columns {
		cols[i] = c
		if !strings.Contains(c.Name, ".") {
			cols[i].Name = table + "." + c.Name
		}
	}
	return &Schema{columns: cols}
}

func (s *Schema) Equal(other *Schema) bool {
	if len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
