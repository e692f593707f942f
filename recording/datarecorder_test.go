package recording

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleEntry struct {
	ID    int
	Name  string
	Ratio float64
	Dirty bool
}

func setupTestRecorder(t *testing.T) (*sqliteWriter, string) {
	path := filepath.Join(t.TempDir(), "test")

	rec, err := New(path)
	require.NoError(t, err)

	w := rec.(*sqliteWriter)
	t.Cleanup(func() { w.Close() })

	return w, path
}

func TestSQLiteWriter_New(t *testing.T) {
	w, path := setupTestRecorder(t)

	assert.NotNil(t, w.DB, "Database connection should be established")
	assert.Equal(t, path+".sqlite3", w.filename)
}

func TestSQLiteWriter_NewRefusesExistingFile(t *testing.T) {
	w, path := setupTestRecorder(t)
	require.NoError(t, w.CreateTable("t", sampleEntry{}))

	_, err := New(path)
	assert.Error(t, err, "An existing database must not be overwritten")
}

func TestSQLiteWriter_DefaultName(t *testing.T) {
	w := newSQLiteWriter()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, w.init())
	defer w.Close()

	assert.Contains(t, w.filename, "hexpager_recording_")
}

func TestSQLiteWriter_CreateTable(t *testing.T) {
	w, _ := setupTestRecorder(t)

	require.NoError(t, w.CreateTable("test_table", sampleEntry{}))

	var tableName string
	err := w.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='test_table';").Scan(&tableName)
	require.NoError(t, err, "Table should be created")
	assert.Equal(t, "test_table", tableName)

	assert.Error(t, w.CreateTable("test_table", sampleEntry{}), "Duplicate table should fail")
}

func TestSQLiteWriter_CreateTableRejectsNested(t *testing.T) {
	w, _ := setupTestRecorder(t)

	nested := struct {
		ID   int
		Tags []string
	}{}

	assert.Error(t, w.CreateTable("bad", nested))
	assert.Error(t, w.CreateTable("bad", 42))
	assert.Empty(t, w.ListTables())
}

func TestSQLiteWriter_InsertAndFlush(t *testing.T) {
	w, _ := setupTestRecorder(t)
	require.NoError(t, w.CreateTable("test_table", sampleEntry{}))
	require.NoError(t, w.CreateTable("other", sampleEntry{}))

	require.NoError(t, w.InsertData("test_table", sampleEntry{1, "Task1", 0.5, true}))
	require.NoError(t, w.InsertData("test_table", sampleEntry{2, "Task2", 1.5, false}))
	require.NoError(t, w.Flush())

	var count int
	require.NoError(t, w.QueryRow("SELECT COUNT(*) FROM test_table;").Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	var dirty bool
	err := w.QueryRow("SELECT Name, Dirty FROM test_table WHERE ID=1;").Scan(&name, &dirty)
	require.NoError(t, err)
	assert.Equal(t, "Task1", name)
	assert.True(t, dirty)

	require.NoError(t, w.QueryRow("SELECT COUNT(*) FROM other;").Scan(&count))
	assert.Equal(t, 0, count, "Tables without entries are skipped")
}

func TestSQLiteWriter_InsertErrors(t *testing.T) {
	w, _ := setupTestRecorder(t)
	require.NoError(t, w.CreateTable("test_table", sampleEntry{}))

	assert.Error(t, w.InsertData("missing", sampleEntry{}))
	assert.Error(t, w.InsertData("test_table", struct{ ID int }{1}))
}

func TestSQLiteWriter_BatchFlush(t *testing.T) {
	w, _ := setupTestRecorder(t)
	w.batchSize = 3
	require.NoError(t, w.CreateTable("test_table", sampleEntry{}))

	for i := 0; i < 4; i++ {
		require.NoError(t, w.InsertData("test_table", sampleEntry{ID: i}))
	}

	var count int
	require.NoError(t, w.QueryRow("SELECT COUNT(*) FROM test_table;").Scan(&count))
	assert.Equal(t, 3, count, "A full batch flushes automatically")
	assert.Equal(t, 1, w.entryCount)
}

func TestSQLiteWriter_ListTables(t *testing.T) {
	w, _ := setupTestRecorder(t)
	require.NoError(t, w.CreateTable("zeta", sampleEntry{}))
	require.NoError(t, w.CreateTable("alpha", sampleEntry{}))

	assert.Equal(t, []string{"alpha", "zeta"}, w.ListTables())
}

func TestSQLiteWriter_CloseFlushes(t *testing.T) {
	w, path := setupTestRecorder(t)
	require.NoError(t, w.CreateTable("test_table", sampleEntry{}))
	require.NoError(t, w.InsertData("test_table", sampleEntry{ID: 7}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")

	db, err := sql.Open("sqlite3", path+".sqlite3")
	require.NoError(t, err)
	defer db.Close()

	var id int
	require.NoError(t, db.QueryRow("SELECT ID FROM test_table;").Scan(&id))
	assert.Equal(t, 7, id)
}

func TestNewWithDB(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shared.sqlite3"))
	require.NoError(t, err)

	rec := NewWithDB(db)
	defer rec.Close()

	require.NoError(t, rec.CreateTable("t", sampleEntry{}))
	require.NoError(t, rec.InsertData("t", sampleEntry{ID: 1}))
	require.NoError(t, rec.Flush())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t;").Scan(&count))
	assert.Equal(t, 1, count)
}
