package godb

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/config"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/foxtrot9/fa20-moocbase/transaction"
)

// Database is the top-level container for the database system.
type Database struct {
	Catalog *catalog.Catalog
	Tables  *transaction.TableStore
	Config  *config.Config
	Log     *logger.Logger

	provider           catalog.PersistenceProvider
	transactionManager *transaction.TransactionManager
}

// NewDatabase opens a database with the given configuration. The catalog is kept on disk when
// cfg.Storage.CatalogDir is set and in memory otherwise; table contents always live in memory, so
// tables reloaded from a persisted catalog start out empty.
func NewDatabase(cfg *config.Config, log *logger.Logger) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var provider catalog.PersistenceProvider = catalog.NewMemoryCatalogManager()
	if dir := cfg.Storage.CatalogDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating catalog directory %s", dir)
		}
		provider = catalog.NewDiskCatalogManager(dir)
	}
	c, err := catalog.NewCatalog(provider)
	if err != nil {
		return nil, errors.Wrap(err, "loading catalog")
	}

	tables := transaction.NewTableStore(c)
	db := &Database{
		Catalog:            c,
		Tables:             tables,
		Config:             cfg,
		Log:                log,
		provider:           provider,
		transactionManager: transaction.NewTransactionManager(tables, cfg.Query.WorkMemPages, log),
	}
	log.Info("database opened", "tables", len(c.ListTables()), "work_mem_pages", cfg.Query.WorkMemPages)
	return db, nil
}

// CreateTable registers a base table in the catalog and allocates its storage.
func (db *Database) CreateTable(name string, schema *catalog.Schema) error {
	tableDef, err := db.Catalog.AddTable(name, schema.Columns(), db.provider)
	if err != nil {
		return err
	}
	if _, err := db.Tables.CreateTable(tableDef); err != nil {
		return err
	}
	db.Log.Debug("created table", "table", name, "schema", schema.String())
	return nil
}

// Insert appends one record to a base table.
func (db *Database) Insert(name string, values ...common.Value) error {
	table, err := db.Tables.GetTable(name)
	if err != nil {
		return err
	}
	if err := table.Heap.AddRecord(values); err != nil {
		return errors.Wrapf(err, "inserting into '%s'", name)
	}
	return nil
}

// BeginTransaction starts a transaction that operator trees can run in.
func (db *Database) BeginTransaction() *transaction.Transaction {
	return db.transactionManager.Begin()
}

// Commit ends txn and drops whatever temporary tables it still holds.
func (db *Database) Commit(txn *transaction.Transaction) error {
	return db.transactionManager.Commit(txn)
}

// Close flushes the logger.
func (db *Database) Close() error {
	if n := db.transactionManager.NumActive(); n > 0 {
		db.Log.Warn("closing database with active transactions", "count", n)
	}
	// Sync on a terminal output fails on some platforms; there is nothing to recover there.
	_ = db.Log.Sync()
	return nil
}
