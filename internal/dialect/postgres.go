package dialect

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"sqlbridge/internal/translate"
)

// PostgresDialect targets Postgres, the engine the legacy corpus was migrated
// to. Its Translate pass carries the backend-specific rewrites: temporary
// tables, cross-schema qualifiers, and a curated table of date/time
// conversion shapes observed in the calling codebase.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string   { return "postgres" }
func (d *PostgresDialect) Driver() string { return "postgres" }

func (d *PostgresDialect) DSN(host, database, user, password string) string {
	return fmt.Sprintf("host=%s dbname=%s user=%s password=%s sslmode=disable",
		quoteDSNValue(host), quoteDSNValue(database),
		quoteDSNValue(user), quoteDSNValue(password))
}

// Conversion-function shapes observed in the legacy queries. The table is
// necessarily finite; shapes it does not cover pass through unchanged and
// must be integration-tested by the caller.
var (
	// convert(varchar(10), g.modification_date, 112) -> g.modification_date::DATE
	conv112 = regexp.MustCompile(`(?i)convert\((?:var)?char\(10\), *([A-Za-z_.0-9]+), *112\)`)

	// convert(char(10), rr.creation_date, 101) -> to_char( rr.creation_date, 'MM/dd/yyyy')
	conv101 = regexp.MustCompile(`(?i)convert\(char\(10\), *([A-Za-z_.0-9]+), *101\)`)

	// convert(char(20), x.creation_date, 100) -> to_char(x.creation_date, 'Mon DD YYYY HH:MMPM')
	conv100 = regexp.MustCompile(`(?i)convert\(char\(20\), *([A-Za-z_.0-9]*(?:creation|modification)_date), *100\)`)

	// convert(int, c.startCoordinate) -> cast(c.startCoordinate as varchar)
	convCoord = regexp.MustCompile(`(?i)convert\(int, *([A-Za-z_.0-9]+coordinate)\)`)

	// dateadd(day, 1, g.cdate) -> (g.cdate + interval '1 day')
	dateAdd = regexp.MustCompile(`(?i)dateadd\(day, *([0-9]+), *([A-Za-z_.0-9]+)\)`)

	// identity(10) -> row_number() over()
	identityCol = regexp.MustCompile(`(?i)identity\([0-9]+\)`)

	getDate = regexp.MustCompile(`(?i)getdate\(\)`)
)

// Translate performs the Postgres-specific rewrite pass. Rule order matters:
// the temp-table rules must run before the '#' marker strip, and the curated
// CONVERT table must run before the bare getdate() rename.
func (d *PostgresDialect) Translate(cmd string) string {
	out := cmd

	// temporary tables: the first 'into #t' creates the table, later
	// references just drop the marker sigil. A preceding DROP TABLE is
	// made conditional since the temp table may not exist yet.
	out = strings.ReplaceAll(out, "drop table #", "drop table if exists ")
	out = strings.ReplaceAll(out, "DROP TABLE #", "DROP TABLE IF EXISTS ")
	out = strings.ReplaceAll(out, "insert into #", "insert into ")
	out = strings.ReplaceAll(out, "into #", "INTO TEMPORARY TABLE ")
	out = strings.ReplaceAll(out, "#", "")

	// sybase qualifies cross-schema tables as schema..table
	out = strings.ReplaceAll(out, "..", ".")

	// offset collides with a reserved word; the column was renamed.
	// Case-sensitive on purpose: already-translated cmOffset is left alone.
	out = strings.ReplaceAll(out, "offset", "cmOffset")

	out = strings.ReplaceAll(out, " like ", " ilike ")
	out = strings.ReplaceAll(out, " LIKE ", " ILIKE ")
	out = strings.ReplaceAll(out, " null ", " NULL ")
	out = translate.RewriteNullComparisons(out)

	out = strings.ReplaceAll(out, "substring", "substr")

	// curated date/time conversion shapes
	out = conv112.ReplaceAllString(out, "$1::DATE")
	out = conv101.ReplaceAllString(out, "to_char( $1, 'MM/dd/yyyy')")
	out = strings.ReplaceAll(out, "convert(char(20), getdate(), 100)", "current_date as cdate")
	out = conv100.ReplaceAllString(out, "to_char($1, 'Mon DD YYYY HH:MMPM')")
	out = convCoord.ReplaceAllString(out, "cast($1 as varchar)")
	out = dateAdd.ReplaceAllString(out, "($2 + interval '$1 day')")
	out = strings.ReplaceAll(out, "datepart(year,", "date_part('year',")
	out = strings.ReplaceAll(out, "str(o.cmOffset,10,2)", "to_char(o.cmOffset, '999.99')")
	out = getDate.ReplaceAllString(out, "now()")

	// untyped literals in a select list need an explicit text cast
	out = strings.ReplaceAll(out, "'E' as source", "'E'::text as source")
	out = strings.ReplaceAll(out, "'L' as source", "'L'::text as source")

	out = identityCol.ReplaceAllString(out, "row_number() over()")

	return rewriteDeleteUsing(out)
}

// rewriteDeleteUsing converts the legacy multi-table "DELETE ... FROM ...
// FROM ..." join syntax into Postgres's USING form. Only the second FROM is
// spliced, and only when no SELECT precedes it; a FROM belonging to a nested
// subquery must not be touched.
func rewriteDeleteUsing(cmd string) string {
	lower := strings.ToLower(cmd)

	delPos := strings.Index(lower, "delete")
	if delPos < 0 {
		return cmd
	}
	first := strings.Index(lower[delPos:], "from")
	if first < 0 {
		return cmd
	}
	first += delPos
	second := strings.Index(lower[first+4:], "from")
	if second < 0 {
		return cmd
	}
	second += first + 4
	if selPos := strings.Index(lower, "select"); selPos >= 0 && selPos < second {
		return cmd
	}
	return cmd[:second] + "USING" + cmd[second+4:]
}

func (d *PostgresDialect) LimitQuery(query string, limit int) string {
	return fmt.Sprintf("%s limit %d", query, limit)
}

// FatalReason matches the three Postgres failure signatures that must never
// be retried. Driver error codes are checked first; the text scan remains as
// the fallback since host-resolution failures surface as net errors.
func (d *PostgresDialect) FatalReason(err error) (Reason, bool) {
	if err == nil {
		return ReasonNone, false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "28P01", "28000": // invalid_password, invalid_authorization
			return ReasonBadCredentials, true
		case "3D000": // invalid_catalog_name
			return ReasonUnknownDatabase, true
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "password authentication failed"):
		return ReasonBadCredentials, true
	case strings.Contains(msg, `database "`) && strings.Contains(msg, "does not exist"):
		return ReasonUnknownDatabase, true
	case strings.Contains(msg, "could not translate host"),
		strings.Contains(msg, "no such host"):
		return ReasonUnknownHost, true
	}
	return ReasonNone, false
}

// BulkLoad streams delimited lines into table through COPY FROM STDIN.
func (d *PostgresDialect) BulkLoad(tx *sql.Tx, r io.Reader, table, sep, null string, columns []string) (int64, error) {
	stmt, err := tx.Prepare(pq.CopyIn(table, columns...))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var count int64
	for scanner.Scan() {
		// a blank line is a row with one empty field, not noise; it only
		// loads on single-column tables and errors out everywhere else
		fields := strings.Split(scanner.Text(), sep)
		if len(fields) != len(columns) {
			return count, fmt.Errorf("row %d: expected %d fields, got %d", count+1, len(columns), len(fields))
		}
		args := make([]any, len(fields))
		for i, f := range fields {
			if f == null {
				args[i] = nil
			} else {
				args[i] = f
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	// flush the COPY buffer
	if _, err := stmt.Exec(); err != nil {
		return count, err
	}
	return count, nil
}

func (d *PostgresDialect) TableColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`
}

func (d *PostgresDialect) IndexDefsQuery() string {
	return `SELECT indexname, indexdef FROM pg_indexes WHERE tablename = $1 AND indexname NOT LIKE '%_pkey'`
}

// quoteDSNValue escapes a keyword/value DSN component per lib/pq rules.
func quoteDSNValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
