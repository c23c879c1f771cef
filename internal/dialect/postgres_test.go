package dialect

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlbridge/internal/translate"
)

// translateAll composes the generic pass with the Postgres pass, the way the
// bridge runner does for a fully-enabled manager.
func translateAll(sql string) string {
	d := &PostgresDialect{}
	return d.Translate(translate.Generic(sql))
}

func TestCharDateConversion(t *testing.T) {
	sql := `
	select distinct substring(m.symbol,1,25) as symbol, m._Marker_key, r._Refs_key,
	    convert(char(10), rr.creation_date, 101) as jnumDate,
	    convert(char(10), a.creation_date, 101) as annotDate
	`
	expected := `
	select distinct substr(m.symbol,1,25) as symbol, m._Marker_key, r._Refs_key,
	    to_char( rr.creation_date, 'MM/dd/yyyy') as jnumDate,
	    to_char( a.creation_date, 'MM/dd/yyyy') as annotDate
	`
	assert.Equal(t, expected, translateAll(sql))
}

func TestDateConversion112(t *testing.T) {
	assert.Equal(t,
		`select g.modification_date::DATE from mrk_history g`,
		translateAll(`select convert(varchar(10), g.modification_date, 112) from mrk_history g`))
}

func TestDateConversion100(t *testing.T) {
	assert.Equal(t,
		`select to_char(a.creation_date, 'Mon DD YYYY HH:MMPM') from acc_accession a`,
		translateAll(`select convert(char(20), a.creation_date, 100) from acc_accession a`))
}

func TestGetdateConversion(t *testing.T) {
	assert.Equal(t,
		`select current_date as cdate from mgi_dbinfo`,
		translateAll(`select convert(char(20), getdate(), 100) from mgi_dbinfo`))
	assert.Equal(t,
		`insert into foo values (now())`,
		translateAll(`insert into foo values (getdate())`))
}

func TestCoordinateConversion(t *testing.T) {
	assert.Equal(t,
		`select cast(c.startCoordinate as varchar) from map_coord_feature c`,
		translateAll(`select convert(int, c.startCoordinate) from map_coord_feature c`))
}

func TestDateadd(t *testing.T) {
	sql := `
	select b._Marker_key, b.jnumID
	from BIB_GOXRef_View b, #goref g
	where b._Marker_key = g._Marker_key
	and exists (select 1 from BIB_GOXRef_View b, #godone g
		 where b._Marker_key = g._Marker_key
		 and b.creation_date > dateadd(day, 1, g.cdate))
	`
	expected := `
	select b._Marker_key, b.jnumID
	from BIB_GOXRef_View b, goref g
	where b._Marker_key = g._Marker_key
	and exists (select 1 from BIB_GOXRef_View b, godone g
		 where b._Marker_key = g._Marker_key
		 and b.creation_date > (g.cdate + interval '1 day'))
	`
	assert.Equal(t, expected, translateAll(sql))
}

func TestOffsetColumn(t *testing.T) {
	sql := `
		select offset from
		mrk_location
	`
	expected := `
		select cmOffset from
		mrk_location
	`
	assert.Equal(t, expected, translateAll(sql))
}

func TestOffsetAlreadyTranslated(t *testing.T) {
	d := &PostgresDialect{}
	assert.Equal(t,
		`select cmOffset from mrk_location`,
		d.Translate(`select cmOffset from mrk_location`))
}

func TestSelectTempTable(t *testing.T) {
	sql := `
		select _marker_key
		into #markerKeys
		from mrk_marker
	`
	expected := `
		select _marker_key
		INTO TEMPORARY TABLE markerKeys
		from mrk_marker
	`
	assert.Equal(t, expected, translateAll(sql))
}

func TestInsertIntoTempTable(t *testing.T) {
	assert.Equal(t,
		`insert into markerKeys select _marker_key from mrk_marker`,
		translateAll(`insert into #markerKeys select _marker_key from mrk_marker`))
}

func TestDropTempTable(t *testing.T) {
	assert.Equal(t,
		`drop table if exists markerKeys`,
		translateAll(`drop table #markerKeys`))
}

func TestCrossSchemaQualifier(t *testing.T) {
	assert.Equal(t,
		`select * from imsr.Label`,
		translateAll(`select * from imsr..Label`))
}

func TestDeleteUsing(t *testing.T) {
	sql := `
	delete from mrk_marker
	from prb_probe_marker pm
	where pm._marker_key=mrk_marker._marker_key
	`
	expected := `
	delete from mrk_marker
	USING prb_probe_marker pm
	where pm._marker_key=mrk_marker._marker_key
	`
	assert.Equal(t, expected, translateAll(sql))
}

func TestDeleteWithSubquerySelectUntouched(t *testing.T) {
	sql := `
	delete from mrk_marker
	where _marker_key in (select _marker_key from mrk_deleted)
	`
	assert.Equal(t, sql, translateAll(sql))
}

func TestStrOffsetConversion(t *testing.T) {
	assert.Equal(t,
		`select to_char(o.cmOffset, '999.99') from mrk_location o`,
		translateAll(`select str(o.offset,10,2) from mrk_location o`))
}

func TestIdentityColumn(t *testing.T) {
	assert.Equal(t,
		`select row_number() over() as seq, symbol INTO TEMPORARY TABLE tmpMarkers from mrk_marker`,
		translateAll(`select identity(10) as seq, symbol into #tmpMarkers from mrk_marker`))
}

func TestSourceLiteralCast(t *testing.T) {
	assert.Equal(t,
		`select 'E'::text as source, _refs_key from bib_refs`,
		translateAll(`select 'E' as source, _refs_key from bib_refs`))
	assert.Equal(t,
		`select 'L'::text as source, _refs_key from bib_refs`,
		translateAll(`select 'L' as source, _refs_key from bib_refs`))
}

func TestDatepartConversion(t *testing.T) {
	assert.Equal(t,
		`select date_part('year', creation_date) from bib_refs`,
		translateAll(`select datepart(year, creation_date) from bib_refs`))
}

func TestPostgresDSN(t *testing.T) {
	d := &PostgresDialect{}
	assert.Equal(t,
		`host=db.example.org dbname=mgd user=mgd_public password=secret sslmode=disable`,
		d.DSN("db.example.org", "mgd", "mgd_public", "secret"))

	// values with spaces or quotes get the quoted form
	assert.Equal(t,
		`host=localhost dbname=mgd user=mgd_public password='p w' sslmode=disable`,
		d.DSN("localhost", "mgd", "mgd_public", "p w"))
}

func TestPostgresLimitQuery(t *testing.T) {
	d := &PostgresDialect{}
	assert.Equal(t, "select * from t limit 50", d.LimitQuery("select * from t", 50))
}

func TestPostgresFatalReason(t *testing.T) {
	d := &PostgresDialect{}

	for _, tc := range []struct {
		err    error
		reason Reason
		fatal  bool
	}{
		{nil, ReasonNone, false},
		{&pq.Error{Code: "28P01"}, ReasonBadCredentials, true},
		{&pq.Error{Code: "3D000"}, ReasonUnknownDatabase, true},
		{errors.New(`pq: password authentication failed for user "mgd"`), ReasonBadCredentials, true},
		{errors.New(`pq: database "nope" does not exist`), ReasonUnknownDatabase, true},
		{errors.New(`dial tcp: lookup badhost: no such host`), ReasonUnknownHost, true},
		{errors.New(`pq: sorry, too many clients already`), ReasonNone, false},
	} {
		reason, fatal := d.FatalReason(tc.err)
		require.Equal(t, tc.fatal, fatal, "err: %v", tc.err)
		assert.Equal(t, tc.reason, reason, "err: %v", tc.err)
	}
}
