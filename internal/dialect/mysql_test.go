package dialect

import (
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMysqlDSN(t *testing.T) {
	d := &MysqlDialect{}
	dsn := d.DSN("db.example.org:3306", "mgd", "mgd_public", "secret")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.example.org:3306", cfg.Addr)
	assert.Equal(t, "mgd", cfg.DBName)
	assert.Equal(t, "mgd_public", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.True(t, cfg.AllowAllFiles)
}

func TestMysqlTranslate(t *testing.T) {
	d := &MysqlDialect{}
	assert.Equal(t,
		`select * from imsr.Label`,
		d.Translate(`select * from imsr..Label`))
	assert.Equal(t,
		`select offset from mrk_location`,
		d.Translate(`select offset from mrk_location`))
}

func TestMysqlFatalReason(t *testing.T) {
	d := &MysqlDialect{}

	for _, tc := range []struct {
		err    error
		reason Reason
		fatal  bool
	}{
		{nil, ReasonNone, false},
		{&mysql.MySQLError{Number: 1045}, ReasonBadCredentials, true},
		{&mysql.MySQLError{Number: 1049}, ReasonUnknownDatabase, true},
		{&mysql.MySQLError{Number: 1040}, ReasonNone, false}, // too many connections
		{errors.New("dial tcp: lookup badhost: no such host"), ReasonUnknownHost, true},
	} {
		reason, fatal := d.FatalReason(tc.err)
		require.Equal(t, tc.fatal, fatal, "err: %v", tc.err)
		assert.Equal(t, tc.reason, reason, "err: %v", tc.err)
	}
}

func TestMysqlBulkLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`LOAD DATA LOCAL INFILE 'Reader::sqlbridge-load-\d+' INTO TABLE mrk_location FIELDS TERMINATED BY '\t' \(chromosome, cmOffset\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.Begin()
	require.NoError(t, err)

	d := &MysqlDialect{}
	n, err := d.BulkLoad(tx, strings.NewReader("19\t12.5\nX\t\\N\n"),
		"mrk_location", "\t", `\N`, []string{"chromosome", "cmOffset"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMysqlBulkLoadRejectsNullToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	// only the driver-native \N token loads as NULL; nothing reaches the
	// server for any other token
	d := &MysqlDialect{}
	_, err = d.BulkLoad(tx, strings.NewReader("19\tNULL\n"),
		"mrk_location", "\t", "NULL", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `only supports the \N null token`)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDialect(t *testing.T) {
	for _, name := range []string{"postgres", "mysql"} {
		d, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}

	_, err := Get("oracle")
	assert.Error(t, err)
}
