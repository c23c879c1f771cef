package cmd

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRow(t *testing.T) {
	stamp := time.Date(2004, 5, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t,
		[]string{"Kit", "12", "NULL", "raw", "2004-05-14 09:30:00"},
		renderRow([]any{"Kit", int64(12), nil, []byte("raw"), stamp}))
}

func TestFirstDiff(t *testing.T) {
	a := [][]string{{"1", "Kit"}, {"2", "Pax6"}}

	_, ok := firstDiff(a, [][]string{{"1", "Kit"}, {"2", "Pax6"}})
	assert.False(t, ok)

	i, ok := firstDiff(a, [][]string{{"1", "Kit"}, {"2", "Hoxa1"}})
	require.True(t, ok)
	assert.Equal(t, 1, i)

	// a strict prefix diverges where the shorter side ends
	i, ok = firstDiff(a, [][]string{{"1", "Kit"}})
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = firstDiff(nil, nil)
	assert.False(t, ok)
}

func TestFetchRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`select _marker_key, symbol from mrk_marker`).
		WillReturnRows(sqlmock.NewRows([]string{"_marker_key", "symbol"}).
			AddRow(int64(1), "Kit").
			AddRow(int64(2), nil))

	rows, err := fetchRows(db, "select _marker_key, symbol from mrk_marker")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Kit"}, {"2", "NULL"}}, rows)

	require.NoError(t, mock.ExpectationsWereMet())
}
