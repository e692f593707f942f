// Package recording stores simulation results in a SQLite database so runs
// can be compared after the process exits.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables, sorted
	ListTables() []string

	// Flush writes all buffered entries in one transaction
	Flush() error

	// Close flushes and closes the database
	Close() error
}

// New creates a SQLite-backed DataRecorder writing to path + ".sqlite3".
// An empty path picks a unique name. The file must not exist yet.
func New(path string) (DataRecorder, error) {
	w := newSQLiteWriter()
	w.dbName = path

	if err := w.init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { w.Flush() })

	return w, nil
}

// NewWithDB creates a DataRecorder over an open database
func NewWithDB(db *sql.DB) DataRecorder {
	w := newSQLiteWriter()
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	mu         sync.Mutex
	dbName     string
	filename   string
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func newSQLiteWriter() *sqliteWriter {
	return &sqliteWriter{
		batchSize: 10000,
		tables:    make(map[string]*table),
	}
}

// init creates the database file
func (w *sqliteWriter) init() error {
	if w.dbName == "" {
		w.dbName = "hexpager_recording_" + xid.New().String()
	}

	w.filename = w.dbName + ".sqlite3"

	if _, err := os.Stat(w.filename); err == nil {
		return fmt.Errorf("file %s already exists", w.filename)
	}

	db, err := sql.Open("sqlite3", w.filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.filename, err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", w.filename)

	w.DB = db
	return nil
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	typ := reflect.TypeOf(entry)
	if typ == nil || typ.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s has unsupported kind %s", field.Name, field.Type.Kind())
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return fmt.Errorf("table %s: %w", tableName, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	w.mu.Lock()

	t, exists := w.tables[tableName]
	if !exists {
		w.mu.Unlock()
		return fmt.Errorf("table %s does not exist", tableName)
	}
	if reflect.TypeOf(entry) != t.structType {
		w.mu.Unlock()
		return fmt.Errorf("table %s expects %s, got %T", tableName, t.structType, entry)
	}

	t.entries = append(t.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.Flush()
	}
	return nil
}

func (w *sqliteWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	return tables
}

func (w *sqliteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entryCount == 0 || w.closed {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for name, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		if err := insertAll(tx, name, t.entries); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, t := range w.tables {
		t.entries = nil
	}
	w.entryCount = 0

	return nil
}

func (w *sqliteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	return w.DB.Close()
}

func insertAll(tx *sql.Tx, tableName string, entries []any) error {
	n := structs.Names(entries[0])
	for i := range n {
		n[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName + " VALUES (" + strings.Join(n, ", ") + ")"
	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", tableName, err)
		}
	}

	return nil
}
