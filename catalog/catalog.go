package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/common"
)

// Catalog manages the base-table schemas of the database and provides fast lookups.
// For simplicity, the catalog is serialized as a single JSON blob through a
// PersistenceProvider. Temporary tables created while running a query never enter the
// catalog; they belong to the transaction that created them.
//
// The catalog only grows: tables are registered once and never altered or dropped.
type Catalog struct {
	catalogState

	mu sync.RWMutex
	// In-memory structures for fast lookups
	tableMap  map[string]*Table   // TableName -> Table
	columnMap map[string][]*Table // ColumnName -> List of Tables containing this column
}

// Table is the primary metadata structure of a base table.
type Table struct {
	Oid     common.ObjectID `json:"oid"`
	Name    string          `json:"name"`
	Columns []Column        `json:"columns"`
}

// Schema returns the unqualified schema of the table.
func (t *Table) Schema() *Schema {
	return NewSchemaFromColumns(t.Columns)
}

// PersistenceProvider abstracts how the catalog is saved and loaded.
type PersistenceProvider interface {
	LoadCatalogState() (json string, err error)
	SaveCatalogState(json string) error
}

func (t *Table) String() string {
	b, _ := json.MarshalIndent(t, "", "  ")
	return string(b)
}

type catalogState struct {
	NextId uint32   `json:"next_id"`
	Tables []*Table `json:"tables"`
}

func (c *Catalog) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, _ := json.MarshalIndent(c.catalogState, "", "  ")
	return string(b)
}

func (c *Catalog) toJSON() (string, error) {
	b, err := json.MarshalIndent(c.catalogState, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Catalog) fromJSON(jsonData string) error {
	if err := json.Unmarshal([]byte(jsonData), &c.catalogState); err != nil {
		return err
	}
	for _, t := range c.Tables {
		c.tableMap[t.Name] = t
		for _, f := range t.Columns {
			c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
		}
	}
	return nil
}

// NewCatalog initializes a catalog. It attempts to load existing state
// from the provider; if no state exists, it starts with an empty database.
func NewCatalog(provider PersistenceProvider) (*Catalog, error) {
	result := &Catalog{
		catalogState: catalogState{
			NextId: 0,
			Tables: make([]*Table, 0),
		},
		tableMap:  make(map[string]*Table),
		columnMap: make(map[string][]*Table),
	}

	jsonData, err := provider.LoadCatalogState()
	if errors.Is(err, os.ErrNotExist) {
		// Start from scratch
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err = result.fromJSON(jsonData); err != nil {
		// Parsing errors are fatal system errors, usually indicating corruption
		return nil, errors.Wrap(err, "failed to parse catalog state")
	}

	return result, nil
}

// AddTable registers a new table in the catalog.
// It assigns a globally unique ObjectID to the table and persists the updated state. If the table with that name
// already exists, it returns DuplicateObjectError.
func (c *Catalog) AddTable(tableName string, columns []Column, provider PersistenceProvider) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tableMap[tableName]; exists {
		return nil, common.NewError(common.DuplicateObjectError, "table '%s' already exists", tableName)
	}

	// oid 0 is reserved for INVALID
	c.NextId++

	t := &Table{
		Oid:     common.ObjectID(c.NextId),
		Name:    tableName,
		Columns: append([]Column(nil), columns...),
	}

	c.Tables = append(c.Tables, t)
	c.tableMap[tableName] = t
	for _, f := range columns {
		c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
	}

	jsonData, err := c.toJSON()
	if err != nil {
		return nil, err
	}
	return t, provider.SaveCatalogState(jsonData)
}

// GetTableMetadata fetches the metadata for a specific table name.
func (c *Catalog) GetTableMetadata(tableName string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, exists := c.tableMap[tableName]
	if !exists {
		return nil, common.NewError(common.NoSuchObjectError, "table '%s' does not exist", tableName)
	}
	return table, nil
}

// ListTables returns every table in registration order.
func (c *Catalog) ListTables() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Table(nil), c.Tables...)
}

// FindTablesWithColumnName returns all tables that contain a column with
// the given name.
func (c *Catalog) FindTablesWithColumnName(columnName string) []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.columnMap[columnName]
}

// MemoryCatalogManager keeps the serialized catalog in memory. It is what a Database uses
// when no catalog directory is configured.
type MemoryCatalogManager struct {
	state string
	saved bool
}

func NewMemoryCatalogManager() *MemoryCatalogManager {
	return &MemoryCatalogManager{}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (m *MemoryCatalogManager) LoadCatalogState() (string, error) {
	if !m.saved {
		return "", os.ErrNotExist
	}
	return m.state, nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (m *MemoryCatalogManager) SaveCatalogState(jsonData string) error {
	m.state, m.saved = jsonData, true
	return nil
}

const CatalogFileName = "catalog.json"

type DiskCatalogManager struct {
	rootPath string
}

func NewDiskCatalogManager(rootPath string) *DiskCatalogManager {
	return &DiskCatalogManager{
		rootPath: rootPath,
	}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) LoadCatalogState() (string, error) {
	path := filepath.Join(dcm.rootPath, CatalogFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err // Let the caller (Catalog) handle os.ErrNotExist
	}
	return string(content), nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) SaveCatalogState(jsonData string) error {
	// perform an atomic write using a temporary file.
	tmpPath := filepath.Join(dcm.rootPath, CatalogFileName+".tmp")
	finalPath := filepath.Join(dcm.rootPath, CatalogFileName)

	if err := os.WriteFile(tmpPath, []byte(jsonData), 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, finalPath)
}
