// Package bridge manages a resilient connection to the target engine and
// executes translated statements over it: acquisition with bounded
// exponential backoff, classified fatal failures, a shared single connection
// with explicit commit/rollback, and legacy-shaped result rows.
package bridge

import (
	"database/sql"
	"io"
	"log"
	"os"
	"time"

	"sqlbridge/internal/dialect"
)

// The target engine may transiently reject connections under load
// (connection-limit exhaustion), so short-lived callers should not fail on a
// momentary spike. The delay doubles after each failed attempt:
// 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8, and 25.6 seconds, for a total of
// 51.1 seconds before giving up entirely.
const (
	maxAttempts  = 10
	initialDelay = 100 * time.Millisecond
)

// Manager owns zero-or-one shared physical connection to the target engine.
// It is created empty, opens the connection lazily on first execute, closes
// it on rollback, and reopens on the next execute. The design assumes
// single-threaded batch/ETL-style callers; a Manager must not be used from
// multiple goroutines without external serialization.
type Manager struct {
	dialect dialect.Dialect
	params  Params

	db *sql.DB
	tx *sql.Tx

	translate        bool
	backendTranslate bool

	cmdLog io.Writer
	logger *log.Logger

	// captured index definitions per table, for DropIndexes/RestoreIndexes
	indexDefs map[string][]string

	// seams for deterministic connection-failure tests
	open  func(driver, dsn string) (*sql.DB, error)
	sleep func(time.Duration)
}

// NewManager builds a Manager for the given engine and parameters. The
// generic translation pass is enabled by default; the backend-specific pass
// is opt-in. Construction fails with a ConfigError when neither credential
// form is given or the password file cannot be read.
func NewManager(d dialect.Dialect, p Params) (*Manager, error) {
	if p.Password == "" && p.PasswordFile == "" {
		return nil, &ConfigError{Reason: "no password specified"}
	}
	if p.Password == "" {
		pw, err := ReadPasswordFile(p.PasswordFile)
		if err != nil {
			return nil, &ConfigError{Reason: "cannot read password file " + p.PasswordFile, Err: err}
		}
		p.Password = pw
	}
	return &Manager{
		dialect:   d,
		params:    p,
		translate: true,
		logger:    log.New(os.Stderr, "", log.LstdFlags),
		indexDefs: make(map[string][]string),
		open:      sql.Open,
		sleep:     time.Sleep,
	}, nil
}

// NewManagerFromDB wraps an already-open connection handle. The caller keeps
// ownership of credentials and pooling; rollback still closes the handle, as
// the legacy semantics require a fresh connection afterwards.
func NewManagerFromDB(d dialect.Dialect, db *sql.DB) *Manager {
	return &Manager{
		dialect:   d,
		db:        db,
		translate: true,
		logger:    log.New(os.Stderr, "", log.LstdFlags),
		indexDefs: make(map[string][]string),
		open:      sql.Open,
		sleep:     time.Sleep,
	}
}

// Dialect returns the engine strategy this manager was constructed with.
func (m *Manager) Dialect() dialect.Dialect { return m.dialect }

// SetTranslate toggles the generic legacy-dialect translation pass.
func (m *Manager) SetTranslate(on bool) { m.translate = on }

// SetBackendTranslate toggles the backend-specific translation pass.
func (m *Manager) SetBackendTranslate(on bool) { m.backendTranslate = on }

// SetCommandLog directs a copy of every executed command, newline-terminated,
// to w. Write failures are ignored; the log is an audit aid, not a
// correctness dependency.
func (m *Manager) SetCommandLog(w io.Writer) { m.cmdLog = w }

// SetLogger replaces the warning/retry logger.
func (m *Manager) SetLogger(l *log.Logger) { m.logger = l }

// connect opens a physical connection, retrying transient failures with
// exponential backoff. Errors matching a fatal signature abort immediately;
// anything else is assumed to be a momentary condition such as too many
// connections.
func (m *Manager) connect() (*sql.DB, error) {
	delay := initialDelay
	for attempt := 1; ; attempt++ {
		db, err := m.open(m.dialect.Driver(), m.dialect.DSN(
			m.params.Host, m.params.Database, m.params.User, m.params.Password))
		if err == nil {
			if err = db.Ping(); err == nil {
				return db, nil
			}
			db.Close()
		}

		if reason, fatal := m.dialect.FatalReason(err); fatal {
			return nil, &ConnectError{
				Reason:   reason,
				Host:     m.params.Host,
				Database: m.params.Database,
				User:     m.params.User,
				Err:      err,
			}
		}
		if attempt >= maxAttempts {
			return nil, &RetryError{
				Attempts: attempt,
				Host:     m.params.Host,
				Database: m.params.Database,
				User:     m.params.User,
				Err:      err,
			}
		}

		m.logger.Printf("warning: failed to get connection for %s:%s as %s; waiting to retry (attempt %d)",
			m.params.Host, m.params.Database, m.params.User, attempt)
		m.sleep(delay)
		delay *= 2
	}
}

// ensure opens the shared connection and transaction if they are not already
// live. All statement execution runs inside one logical transaction until the
// caller commits or rolls back.
func (m *Manager) ensure() error {
	if m.db == nil {
		db, err := m.connect()
		if err != nil {
			return err
		}
		m.db = db
	}
	if m.tx == nil {
		tx, err := m.db.Begin()
		if err != nil {
			return &CommandError{SQL: "begin", Err: err}
		}
		m.tx = tx
	}
	return nil
}

// Execute runs one already-translated statement on the shared connection.
// It returns the eagerly fetched result, or (nil, nil) when the statement
// produced no column descriptors (plain DML/DDL). Any failure rolls back the
// shared transaction before returning a CommandError.
func (m *Manager) Execute(cmd string) (*Result, error) {
	if err := m.ensure(); err != nil {
		return nil, err
	}
	m.logCommand(cmd)

	rows, err := m.tx.Query(cmd)
	if err != nil {
		return nil, m.failCommand(cmd, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, m.failCommand(cmd, err)
	}
	if len(columns) == 0 {
		// no columns means there are no rows to retrieve
		return nil, nil
	}

	data, err := scanAll(rows, len(columns))
	if err != nil {
		return nil, m.failCommand(cmd, err)
	}
	return &Result{Columns: columns, Rows: data}, nil
}

// failCommand rolls back the shared transaction (leaving the connection open
// for the next statement) and wraps the failure with the offending command.
func (m *Manager) failCommand(cmd string, err error) error {
	if m.tx != nil {
		m.tx.Rollback()
		m.tx = nil
	}
	return &CommandError{SQL: cmd, Err: err}
}

func scanAll(rows *sql.Rows, width int) ([][]any, error) {
	var out [][]any
	for rows.Next() {
		vals := make([]any, width)
		ptrs := make([]any, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// Commit confirms any outstanding changes. The shared connection stays open
// for reuse; the next execute begins a fresh transaction.
func (m *Manager) Commit() error {
	if m.tx == nil {
		return nil
	}
	err := m.tx.Commit()
	m.tx = nil
	return err
}

// Rollback discards any outstanding changes and closes the shared
// connection. The next execute acquires a fresh one.
func (m *Manager) Rollback() error {
	var err error
	if m.tx != nil {
		err = m.tx.Rollback()
		m.tx = nil
	}
	if m.db != nil {
		m.db.Close()
		m.db = nil
	}
	return err
}

// Close releases the shared connection without committing; uncommitted work
// is implicitly rolled back.
func (m *Manager) Close() error { return m.Rollback() }

func (m *Manager) logCommand(cmd string) {
	if m.cmdLog == nil {
		return
	}
	io.WriteString(m.cmdLog, cmd)
	io.WriteString(m.cmdLog, "\n")
}

// CopyFrom streams delimited rows from r into table using the engine's bulk
// mechanism, bypassing SQL translation entirely. sep defaults to a tab and
// null to the \N token. When columns is empty the table's own column order is
// looked up, since the data is then assumed to match the full table shape.
func (m *Manager) CopyFrom(r io.Reader, table, sep, null string, columns []string) (int64, error) {
	if sep == "" {
		sep = "\t"
	}
	if null == "" {
		null = `\N`
	}
	if err := m.ensure(); err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		cols, err := m.tableColumns(table)
		if err != nil {
			return 0, err
		}
		columns = cols
	}
	n, err := m.dialect.BulkLoad(m.tx, r, table, sep, null, columns)
	if err != nil {
		return n, m.failCommand("copy into "+table, err)
	}
	return n, nil
}

func (m *Manager) tableColumns(table string) ([]string, error) {
	q := m.dialect.TableColumnsQuery()
	rows, err := m.tx.Query(q, table)
	if err != nil {
		return nil, m.failCommand(q, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, m.failCommand(q, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, m.failCommand(q, err)
	}
	return cols, nil
}

// DropIndexes captures the definitions of table's secondary indexes and
// drops them, opening a maintenance window for bulk loads. The captured
// definitions are held by the manager until RestoreIndexes replays them.
func (m *Manager) DropIndexes(table string) error {
	q := m.dialect.IndexDefsQuery()
	if q == "" {
		return &CommandError{SQL: "drop indexes on " + table,
			Err: errIndexUnsupported(m.dialect.Name())}
	}
	if err := m.ensure(); err != nil {
		return err
	}

	rows, err := m.tx.Query(q, table)
	if err != nil {
		return m.failCommand(q, err)
	}
	defer rows.Close()

	var names, defs []string
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return m.failCommand(q, err)
		}
		names = append(names, name)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return m.failCommand(q, err)
	}
	rows.Close()

	for _, name := range names {
		drop := "DROP INDEX " + name
		m.logCommand(drop)
		if _, err := m.tx.Exec(drop); err != nil {
			return m.failCommand(drop, err)
		}
	}
	m.indexDefs[table] = defs
	return nil
}

// RestoreIndexes replays the index definitions captured by DropIndexes,
// closing the maintenance window.
func (m *Manager) RestoreIndexes(table string) error {
	defs := m.indexDefs[table]
	if len(defs) == 0 {
		return nil
	}
	if err := m.ensure(); err != nil {
		return err
	}
	for _, def := range defs {
		m.logCommand(def)
		if _, err := m.tx.Exec(def); err != nil {
			return m.failCommand(def, err)
		}
	}
	delete(m.indexDefs, table)
	return nil
}
