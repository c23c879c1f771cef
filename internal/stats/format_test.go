package stats

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommaDelimit(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1234567", "1,234,567"},
		{"1234.5678", "1,234.5678"},
		{".5", "0.5"},
		{"42.0", "42.0"},
	} {
		got, err := CommaDelimit(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestCommaDelimitRejectsNonNumeric(t *testing.T) {
	_, err := CommaDelimit("a lot")
	assert.Error(t, err)
}

func TestExpandMarkupNoTags(t *testing.T) {
	store := NewStore(nil)
	out, err := store.ExpandMarkup("plain text, no tags")
	require.NoError(t, err)
	assert.Equal(t, "plain text, no tags", out)
}

func TestExpandMarkupMismatchedParens(t *testing.T) {
	store := NewStore(nil)
	in := `count: \Measurement(dtc`
	out, err := store.ExpandMarkup(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestExpandMarkupSubstitutesLatestValue(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`lower\(abbreviation\) = 'dtc'`).WillReturnRows(statisticRows())
	mock.ExpectQuery(`isLatest = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"isLatest", "intValue", "floatValue", "timeRecorded"}).
			AddRow(1, 12345, nil, "2024-03-15"))

	out, err := store.ExpandMarkup(`There are \Measurement(dtc) trials.`)
	require.NoError(t, err)
	assert.Equal(t, "There are 12,345 trials.", out)
}
