// Package stats provides access to the statistic bookkeeping tables
// (MGI_Statistic, MGI_StatisticSql, MGI_Measurement) and the set-based
// grouping tables (MGI_Set, MGI_SetMember). All queries are written in the
// legacy dialect and rely on the bridge translation passes, which keeps this
// package identical regardless of the target engine.
//
// Deletion of statistics and measurements is deliberately not offered here;
// destructive maintenance goes through raw SQL so it cannot happen by
// accident.
package stats

import (
	"fmt"
	"strconv"
	"strings"

	"sqlbridge/internal/bridge"
)

// sqlChunkSize is the column width of MGI_StatisticSql.sqlChunk; longer
// commands are stored as ordered chunks.
const sqlChunkSize = 255

// Measurement is one timestamped observation of a statistic. Exactly one of
// IntValue and FloatValue is meaningful, selected by HasInt.
type Measurement struct {
	Timestamp  string
	HasInt     bool
	IntValue   int64
	FloatValue float64
}

// Statistic is a measurable quantity tracked over time.
type Statistic struct {
	Key        int64
	Abbrev     string
	Name       string
	Definition string
	Private    bool
	HasInt     bool
}

// Store runs the statistic bookkeeping queries over one bridge manager.
type Store struct {
	m *bridge.Manager
}

// NewStore wraps an initialized manager.
func NewStore(m *bridge.Manager) *Store { return &Store{m: m} }

// Statistic fetches the statistic with the given abbreviation.
func (s *Store) Statistic(abbrev string) (*Statistic, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT *
		FROM MGI_Statistic
		WHERE abbreviation = "%s"`, abbrev))
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Rows) == 0 {
		return nil, fmt.Errorf("stats: unknown statistic: %s", abbrev)
	}
	return statisticFromRow(res.Legacy()[0])
}

// StatisticByKey fetches the statistic with the given database key.
func (s *Store) StatisticByKey(key int64) (*Statistic, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT abbreviation
		FROM MGI_Statistic
		WHERE _Statistic_key = %d`, key))
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Rows) == 0 {
		return nil, fmt.Errorf("stats: unknown statistic key: %d", key)
	}
	abbrev, err := rowString(res.Legacy()[0], "abbreviation")
	if err != nil {
		return nil, err
	}
	return s.Statistic(abbrev)
}

// StatisticByName fetches the statistic with the given name; names are not
// constrained unique in the schema, so a duplicate is an error here.
func (s *Store) StatisticByName(name string) (*Statistic, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT abbreviation
		FROM MGI_Statistic
		WHERE name = "%s"`, name))
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Rows) == 0 {
		return nil, fmt.Errorf("stats: unknown statistic name: %s", name)
	}
	if len(res.Rows) > 1 {
		return nil, fmt.Errorf("stats: non-unique statistic name: %s", name)
	}
	abbrev, err := rowString(res.Legacy()[0], "abbreviation")
	if err != nil {
		return nil, err
	}
	return s.Statistic(abbrev)
}

// Statistics returns every statistic, ordered by abbreviation, or just the
// members of the named group in the group's own ordering.
func (s *Store) Statistics(group string) ([]*Statistic, error) {
	cmd := `SELECT abbreviation
		FROM MGI_Statistic
		ORDER BY abbreviation`
	if group != "" {
		cmd = fmt.Sprintf(`select distinct ms.abbreviation, msm.sequenceNum
			from MGI_Set mset,
				MGI_SetMember msm,
				MGI_Statistic ms
			where mset.name = '%s'
				and mset._MGIType_key = (select _MGIType_key
					from ACC_MGIType
					where name = 'Statistic')
				and msm._Set_key = mset._Set_key
				and ms._Statistic_key = msm._Object_key
			order by msm.sequenceNum`, group)
	}

	res, err := s.m.RunOne(cmd)
	if err != nil {
		return nil, err
	}
	var out []*Statistic
	if res == nil {
		return out, nil
	}
	for _, row := range res.Legacy() {
		abbrev, err := rowString(row, "abbreviation")
		if err != nil {
			return nil, err
		}
		stat, err := s.Statistic(abbrev)
		if err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, nil
}

// Groups returns the names of every statistic group.
func (s *Store) Groups() ([]string, error) {
	res, err := s.m.RunOne(`SELECT name
		FROM MGI_Set
		WHERE _MGIType_key = (SELECT _MGIType_key
				FROM ACC_MGIType
				WHERE name = "Statistic")
		ORDER BY sequenceNum`)
	if err != nil {
		return nil, err
	}
	return stringColumn(res, "name")
}

// GroupsOf returns the names of the groups containing the given statistic.
func (s *Store) GroupsOf(stat *Statistic) ([]string, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT ms.name
		FROM MGI_Set ms,
			MGI_SetMember msm
		WHERE ms._Set_key = msm._Set_key
			AND ms._MGIType_key = (SELECT _MGIType_key
					FROM ACC_MGIType
					WHERE name = "Statistic")
			AND msm._Object_key = %d`, stat.Key))
	if err != nil {
		return nil, err
	}
	return stringColumn(res, "name")
}

// Abbreviations returns every statistic abbreviation, sorted.
func (s *Store) Abbreviations() ([]string, error) {
	res, err := s.m.RunOne(`SELECT abbreviation
		FROM MGI_Statistic
		ORDER BY abbreviation`)
	if err != nil {
		return nil, err
	}
	return stringColumn(res, "abbreviation")
}

// SQL returns the measurement command stored for the statistic, reassembled
// from its ordered chunks, or "" when none is stored.
func (s *Store) SQL(stat *Statistic) (string, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT sqlChunk
		FROM MGI_StatisticSql
		WHERE _Statistic_key = %d
		ORDER BY sequenceNum`, stat.Key))
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	var b strings.Builder
	for _, row := range res.Legacy() {
		chunk, err := rowString(row, "sqlChunk")
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// SetSQL replaces the measurement command stored for the statistic, splitting
// it into ordered chunks.
func (s *Store) SetSQL(stat *Statistic, cmd string) error {
	if _, err := s.m.RunOne(fmt.Sprintf(`DELETE FROM MGI_StatisticSql
		WHERE _Statistic_key = %d`, stat.Key)); err != nil {
		return err
	}
	for i := 0; len(cmd) > 0; i++ {
		chunk := cmd
		if len(chunk) > sqlChunkSize {
			chunk = chunk[:sqlChunkSize]
		}
		cmd = cmd[len(chunk):]
		if _, err := s.m.RunOne(fmt.Sprintf(`INSERT INTO MGI_StatisticSql
			VALUES (%d, %d, "%s")`, stat.Key, i+1, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// LatestMeasurement returns the most recent measurement for the statistic, or
// nil when none has been recorded.
func (s *Store) LatestMeasurement(stat *Statistic) (*Measurement, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT isLatest,
			intValue,
			floatValue,
			to_char(timeRecorded, 'YYYY-MM-DD')
				as timeRecorded
		FROM MGI_Measurement
		WHERE _Statistic_key = %d
			AND isLatest = 1`, stat.Key))
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Rows) == 0 {
		return nil, nil
	}
	m, err := measurementFromRow(res.Legacy()[0], stat.HasInt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Measurements returns every measurement for the statistic, oldest first.
func (s *Store) Measurements(stat *Statistic) ([]Measurement, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT intValue,
			floatValue,
			to_char(timeRecorded, 'YYYY-MM-DD')
				as timeRecorded
		FROM MGI_Measurement
		WHERE _Statistic_key = %d
		ORDER BY timeRecorded`, stat.Key))
	if err != nil {
		return nil, err
	}
	var out []Measurement
	if res == nil {
		return out, nil
	}
	for _, row := range res.Legacy() {
		m, err := measurementFromRow(row, stat.HasInt)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// RecordInt records an integer-valued measurement for the statistic with the
// given abbreviation, through the stored procedure any account may call.
func (s *Store) RecordInt(abbrev string, value int64) error {
	_, err := s.m.RunOne(fmt.Sprintf(`exec MGI_recordMeasurement "%s", %d`,
		abbrev, value))
	return err
}

// RecordFloat records a float-valued measurement.
func (s *Store) RecordFloat(abbrev string, value float64) error {
	_, err := s.m.RunOne(fmt.Sprintf(`exec MGI_recordMeasurement "%s", null, %1.5f`,
		abbrev, value))
	return err
}

// MeasureAllHavingSQL records a fresh measurement for every statistic that
// has a stored measurement command: the command is run and the first field of
// its first row becomes the new value. Statistics that fail are skipped and
// reported together at the end, so one bad command does not block the rest.
func (s *Store) MeasureAllHavingSQL() error {
	abbrevs, err := s.Abbreviations()
	if err != nil {
		return err
	}

	var failed []string
	for _, abbrev := range abbrevs {
		if err := s.measureOne(abbrev); err != nil {
			failed = append(failed, abbrev)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("stats: failed to add measurements for statistics: %s",
			strings.Join(failed, ", "))
	}
	return nil
}

func (s *Store) measureOne(abbrev string) error {
	stat, err := s.Statistic(abbrev)
	if err != nil {
		return err
	}
	cmd, err := s.SQL(stat)
	if err != nil || cmd == "" {
		return err
	}
	res, err := s.m.RunOne(cmd)
	if err != nil {
		return err
	}
	if res == nil || len(res.Rows) == 0 {
		return nil
	}

	value := res.Rows[0][0]
	if stat.HasInt {
		n, err := asInt(value)
		if err != nil {
			return err
		}
		return s.RecordInt(abbrev, n)
	}
	f, err := asFloat(value)
	if err != nil {
		return err
	}
	return s.RecordFloat(abbrev, f)
}

// CreateStatistic registers a new statistic and returns it. The abbreviation
// must not already exist.
func (s *Store) CreateStatistic(abbrev, name, definition string, private, hasInt bool) (*Statistic, error) {
	res, err := s.m.RunOne(fmt.Sprintf(`SELECT _Statistic_key
		FROM MGI_Statistic
		WHERE abbreviation = "%s"`, abbrev))
	if err != nil {
		return nil, err
	}
	if res != nil && len(res.Rows) > 0 {
		return nil, fmt.Errorf("stats: abbreviation already exists: %s", abbrev)
	}

	key, err := s.nextKey(`SELECT MAX(_Statistic_key) FROM MGI_Statistic`)
	if err != nil {
		return nil, err
	}
	if _, err := s.m.RunOne(fmt.Sprintf(`INSERT INTO MGI_Statistic (_Statistic_key, name, abbreviation,
			definition, isPrivate, hasIntValue)
		VALUES (%d, "%s", "%s", "%s", %d, %d)`,
		key, name, abbrev, definition, boolInt(private), boolInt(hasInt))); err != nil {
		return nil, err
	}
	return s.Statistic(abbrev)
}

// nextKey returns one past the current maximum of a surrogate key column, or
// 1 on an empty table.
func (s *Store) nextKey(maxQuery string) (int64, error) {
	res, err := s.m.RunOne(maxQuery)
	if err != nil {
		return 0, err
	}
	if res == nil || len(res.Rows) == 0 || res.Rows[0][0] == nil {
		return 1, nil
	}
	n, err := asInt(res.Rows[0][0])
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func statisticFromRow(row bridge.Row) (*Statistic, error) {
	key, err := rowInt(row, "_Statistic_key")
	if err != nil {
		return nil, err
	}
	abbrev, err := rowString(row, "abbreviation")
	if err != nil {
		return nil, err
	}
	name, err := rowString(row, "name")
	if err != nil {
		return nil, err
	}
	definition, err := rowString(row, "definition")
	if err != nil {
		return nil, err
	}
	private, err := rowInt(row, "isPrivate")
	if err != nil {
		return nil, err
	}
	hasInt, err := rowInt(row, "hasIntValue")
	if err != nil {
		return nil, err
	}
	return &Statistic{
		Key:        key,
		Abbrev:     abbrev,
		Name:       name,
		Definition: definition,
		Private:    private != 0,
		HasInt:     hasInt != 0,
	}, nil
}

func measurementFromRow(row bridge.Row, hasInt bool) (Measurement, error) {
	m := Measurement{HasInt: hasInt}
	ts, err := rowString(row, "timeRecorded")
	if err != nil {
		return m, err
	}
	m.Timestamp = ts

	if hasInt {
		v, err := row.Get("intValue")
		if err != nil {
			return m, err
		}
		if v != nil {
			if m.IntValue, err = asInt(v); err != nil {
				return m, err
			}
		}
		return m, nil
	}
	v, err := row.Get("floatValue")
	if err != nil {
		return m, err
	}
	if v != nil {
		if m.FloatValue, err = asFloat(v); err != nil {
			return m, err
		}
	}
	return m, nil
}

func stringColumn(res *bridge.Result, key string) ([]string, error) {
	var out []string
	if res == nil {
		return out, nil
	}
	for _, row := range res.Legacy() {
		v, err := rowString(row, key)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func rowString(row bridge.Row, key string) (string, error) {
	v, err := row.Get(key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func rowInt(row bridge.Row, key string) (int64, error) {
	v, err := row.Get(key)
	if err != nil {
		return 0, err
	}
	return asInt(v)
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("stats: cannot read %T as integer", v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("stats: cannot read %T as float", v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
