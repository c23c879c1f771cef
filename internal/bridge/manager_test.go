package bridge

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlbridge/internal/dialect"
)

// newTestManager wires a manager to a sqlmock connection through the open
// seam, with sleeps recorded instead of taken.
func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := dialect.Get("postgres")
	require.NoError(t, err)

	m, err := NewManager(d, Params{Host: "h", Database: "d", User: "u", Password: "p"})
	require.NoError(t, err)
	m.open = func(driver, dsn string) (*sql.DB, error) { return db, nil }
	m.sleep = func(time.Duration) {}
	return m, mock
}

func TestNewManagerRequiresCredential(t *testing.T) {
	d, err := dialect.Get("postgres")
	require.NoError(t, err)

	_, err = NewManager(d, Params{Host: "h", Database: "d", User: "u"})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestNewManagerReadsPasswordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("sekrit\n"), 0o600))

	d, err := dialect.Get("postgres")
	require.NoError(t, err)

	m, err := NewManager(d, Params{Host: "h", Database: "d", User: "u", PasswordFile: path})
	require.NoError(t, err)
	assert.Equal(t, "sekrit", m.params.Password)
}

func TestExecuteCollectsRows(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select symbol from mrk_marker").WillReturnRows(
		sqlmock.NewRows([]string{"symbol"}).AddRow("Pax6").AddRow("Kit"))

	res, err := m.Execute("select symbol from mrk_marker")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"symbol"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Pax6", res.Rows[0][0])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteNoResultSentinel(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery("delete from mrk_marker").WillReturnRows(sqlmock.NewRows(nil))

	res, err := m.Execute("delete from mrk_marker")
	require.NoError(t, err)
	assert.Nil(t, res, "statements without column descriptors report no result")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRollsBackOnError(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select boom").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	_, err := m.Execute("select boom")
	require.Error(t, err)
	assert.True(t, IsCommandError(err))
	assert.Contains(t, err.Error(), "select boom")

	// the connection survives the rollback; a new transaction begins
	mock.ExpectBegin()
	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))
	_, err = m.Execute("select 1")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitKeepsConnection(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("select 2").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(2))

	_, err := m.Execute("select 1")
	require.NoError(t, err)
	require.NoError(t, m.Commit())

	_, err = m.Execute("select 2")
	require.NoError(t, err)
	assert.NotNil(t, m.db)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollbackClosesConnection(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))
	mock.ExpectRollback()
	mock.ExpectClose()

	_, err := m.Execute("select 1")
	require.NoError(t, err)
	require.NoError(t, m.Rollback())
	assert.Nil(t, m.db)
	assert.Nil(t, m.tx)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandLogRecordsStatements(t *testing.T) {
	m, mock := newTestManager(t)
	var logged bytes.Buffer
	m.SetCommandLog(&logged)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	_, err := m.Execute("select 1")
	require.NoError(t, err)
	assert.Equal(t, "select 1\n", logged.String())
}

func TestConnectRetriesTransientFailures(t *testing.T) {
	d, err := dialect.Get("postgres")
	require.NoError(t, err)

	m, err := NewManager(d, Params{Host: "h", Database: "d", User: "u", Password: "p"})
	require.NoError(t, err)

	attempts := 0
	m.open = func(driver, dsn string) (*sql.DB, error) {
		attempts++
		return nil, errors.New("pq: sorry, too many clients already")
	}
	var delays []time.Duration
	m.sleep = func(d time.Duration) { delays = append(delays, d) }

	_, err = m.Execute("select 1")
	require.Error(t, err)
	assert.True(t, IsRetryError(err))
	assert.Equal(t, 10, attempts)

	// nine waits, doubling from 100ms to 25.6s
	require.Len(t, delays, 9)
	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, 25600*time.Millisecond, delays[8])

	var total time.Duration
	for _, d := range delays {
		total += d
	}
	assert.Equal(t, 51100*time.Millisecond, total)
}

func TestConnectFatalFailureSkipsRetry(t *testing.T) {
	d, err := dialect.Get("postgres")
	require.NoError(t, err)

	m, err := NewManager(d, Params{Host: "h", Database: "mgd", User: "u", Password: "p"})
	require.NoError(t, err)

	attempts := 0
	m.open = func(driver, dsn string) (*sql.DB, error) {
		attempts++
		return nil, errors.New(`pq: database "mgd" does not exist`)
	}
	m.sleep = func(time.Duration) { t.Fatal("fatal failures must not wait") }

	_, err = m.Execute("select 1")
	require.Error(t, err)
	assert.True(t, IsConnectError(err))
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "unknown database (mgd)")
}

func TestDropAndRestoreIndexes(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT indexname, indexdef FROM pg_indexes WHERE tablename = $1 AND indexname NOT LIKE '%_pkey'`).
		WithArgs("mrk_marker").
		WillReturnRows(sqlmock.NewRows([]string{"indexname", "indexdef"}).
			AddRow("mrk_marker_symbol_idx", "CREATE INDEX mrk_marker_symbol_idx ON mrk_marker (symbol)"))
	mock.ExpectExec("DROP INDEX mrk_marker_symbol_idx").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX mrk_marker_symbol_idx ON mrk_marker (symbol)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, m.DropIndexes("mrk_marker"))
	require.NoError(t, m.RestoreIndexes("mrk_marker"))

	// a second restore is a no-op: the captured definitions were consumed
	require.NoError(t, m.RestoreIndexes("mrk_marker"))

	require.NoError(t, mock.ExpectationsWereMet())
}
