package dialect

import (
	"database/sql"
	"io"
)

// Reason identifies a fatal connection-failure signature. Errors carrying one
// of these must never be retried.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonBadCredentials
	ReasonUnknownDatabase
	ReasonUnknownHost
)

func (r Reason) String() string {
	switch r {
	case ReasonBadCredentials:
		return "bad credentials"
	case ReasonUnknownDatabase:
		return "unknown database"
	case ReasonUnknownHost:
		return "unknown host"
	default:
		return "none"
	}
}

// Dialect abstracts the target-engine-specific operations of the bridge.
// A Dialect is resolved once at construction time; no engine switching
// happens after that.
type Dialect interface {
	// Name returns the engine name ("postgres" or "mysql").
	Name() string

	// Driver returns the database/sql driver name to open connections with.
	Driver() string

	// DSN builds a driver connection string from connection parameters.
	DSN(host, database, user, password string) string

	// Translate applies the backend-specific rewrite pass to an
	// already-generically-translated statement. Like the generic pass it
	// is best effort: unrecognized shapes pass through unchanged.
	Translate(sql string) string

	// LimitQuery appends the engine's row-limiting clause to a query.
	LimitQuery(sql string, limit int) string

	// FatalReason reports whether err matches one of the engine's fatal
	// connection-failure signatures.
	FatalReason(err error) (Reason, bool)

	// BulkLoad streams delimited rows from r into table using the
	// engine's native bulk-copy mechanism. It returns the number of rows
	// loaded. The data bypasses SQL translation entirely.
	BulkLoad(tx *sql.Tx, r io.Reader, table, sep, null string, columns []string) (int64, error)

	// TableColumnsQuery returns a single-parameter query yielding the
	// table's column names in ordinal order, for bulk loads that do not
	// name their columns.
	TableColumnsQuery() string

	// IndexDefsQuery returns a single-parameter query yielding
	// (index name, index definition) rows for a table, used to capture
	// index definitions across a disable/re-enable maintenance window.
	// An empty string means the engine does not support this.
	IndexDefsQuery() string
}
