package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"
)

// MysqlDialect targets MySQL, the alternate engine the legacy corpus could
// run against. The backend-specific query shapes were only ever exercised on
// Postgres, so this pass is limited to schema-qualifier normalization.
type MysqlDialect struct{}

func (d *MysqlDialect) Name() string   { return "mysql" }
func (d *MysqlDialect) Driver() string { return "mysql" }

func (d *MysqlDialect) DSN(host, database, user, password string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = database
	cfg.User = user
	cfg.Passwd = password
	// required for LOAD DATA LOCAL INFILE bulk loads
	cfg.AllowAllFiles = true
	return cfg.FormatDSN()
}

func (d *MysqlDialect) Translate(cmd string) string {
	return strings.ReplaceAll(cmd, "..", ".")
}

func (d *MysqlDialect) LimitQuery(query string, limit int) string {
	return fmt.Sprintf("%s limit %d", query, limit)
}

func (d *MysqlDialect) FatalReason(err error) (Reason, bool) {
	if err == nil {
		return ReasonNone, false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1045: // ER_ACCESS_DENIED_ERROR
			return ReasonBadCredentials, true
		case 1049: // ER_BAD_DB_ERROR
			return ReasonUnknownDatabase, true
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Access denied"):
		return ReasonBadCredentials, true
	case strings.Contains(msg, "Unknown database"):
		return ReasonUnknownDatabase, true
	case strings.Contains(msg, "no such host"):
		return ReasonUnknownHost, true
	}
	return ReasonNone, false
}

// readerSeq distinguishes concurrent bulk loads registered with the driver.
var readerSeq uint64

// BulkLoad streams r into table through LOAD DATA LOCAL INFILE, handing the
// reader to the driver via its registered-reader mechanism.
func (d *MysqlDialect) BulkLoad(tx *sql.Tx, r io.Reader, table, sep, null string, columns []string) (int64, error) {
	if null != "" && null != `\N` {
		// \N is the driver's native NULL token; anything else needs a
		// NULLIF on each column, which is not worth supporting here
		return 0, fmt.Errorf("mysql bulk load only supports the \\N null token, not %q", null)
	}

	name := fmt.Sprintf("sqlbridge-load-%d", atomic.AddUint64(&readerSeq, 1))
	mysql.RegisterReaderHandler(name, func() io.Reader { return r })
	defer mysql.DeregisterReaderHandler(name)

	var b strings.Builder
	fmt.Fprintf(&b, "LOAD DATA LOCAL INFILE 'Reader::%s' INTO TABLE %s", name, table)
	fmt.Fprintf(&b, " FIELDS TERMINATED BY '%s'", sep)
	if len(columns) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(columns, ", "))
	}

	res, err := tx.Exec(b.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *MysqlDialect) TableColumnsQuery() string {
	return `SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
}

// IndexDefsQuery is unsupported on MySQL: SHOW INDEX output cannot be
// replayed as DDL.
func (d *MysqlDialect) IndexDefsQuery() string { return "" }
