package stats

import (
	"fmt"
	"strconv"
	"strings"
)

const markupStart = `\Measurement(`

// CommaDelimit inserts thousands separators into the whole-number portion of
// a numeric string, leaving any fractional portion untouched.
func CommaDelimit(s string) (string, error) {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", fmt.Errorf("stats: cannot add commas to non-numeric: %s", s)
	}

	whole, fraction := s, ""
	if dot := strings.Index(s, "."); dot != -1 {
		whole, fraction = s[:dot], s[dot:]
	}
	if whole == "" {
		whole = "0"
	}

	var parts []string
	for len(whole) > 0 {
		cut := len(whole) - 3
		if cut < 0 {
			cut = 0
		}
		parts = append([]string{whole[cut:]}, parts...)
		whole = whole[:cut]
	}
	return strings.Join(parts, ",") + fraction, nil
}

// ExpandMarkup replaces every \Measurement(abbrev) tag in s with the latest
// recorded value of that statistic, comma-delimited. Float values are
// rendered with three decimal places. Parentheses inside an abbreviation are
// honored by bracket matching; mismatched parentheses return s unchanged.
func (st *Store) ExpandMarkup(s string) (string, error) {
	pos := strings.Index(s, markupStart)
	if pos == -1 {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for pos != -1 {
		end, ok := matchParen(s, pos+len(markupStart))
		if !ok {
			return s, nil
		}

		abbrev := s[pos+len(markupStart) : end]
		stat, err := st.Statistic(abbrev)
		if err != nil {
			return "", err
		}
		m, err := st.LatestMeasurement(stat)
		if err != nil {
			return "", err
		}
		if m == nil {
			return "", fmt.Errorf("stats: no measurement recorded for %s", abbrev)
		}

		var value string
		if m.HasInt {
			value = strconv.FormatInt(m.IntValue, 10)
		} else {
			value = fmt.Sprintf("%0.3f", m.FloatValue)
		}
		value, err = CommaDelimit(value)
		if err != nil {
			return "", err
		}

		b.WriteString(s[last:pos])
		b.WriteString(value)
		last = end + 1
		pos = indexFrom(s, markupStart, end+1)
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// matchParen returns the index of the parenthesis closing the group opened
// just before start.
func matchParen(s string, start int) (int, bool) {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], sub)
	if i == -1 {
		return -1
	}
	return from + i
}
