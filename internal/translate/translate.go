// Package translate rewrites SQL written against the legacy Sybase dialect
// into portable SQL the target engines accept. It is a best-effort,
// pattern-driven rewrite: the rules cover the query shapes previously
// observed in the calling codebase, and anything they do not match passes
// through verbatim. There is no parser and no validation here.
package translate

import (
	"regexp"
	"strings"
)

// Rule ordering matters: global substitutions run before clause-scoped ones,
// and clause-scoped ones assume the text shape the earlier rules produced.

// catch a leading stored-procedure call: EXEC <name> <args>
var execCall = regexp.MustCompile(`(?is)^\s*exec\s+([A-Za-z0-9_]+)\s*(.*?)\s*$`)

// catch both != and = comparisons against quoted literals in WHERE clauses
var equalClause = regexp.MustCompile(`([\s(])([A-Za-z_.0-9]+) *(!?=) *'([^']*)'`)

// catch both 'in' and 'not in' literal lists in WHERE clauses
var inClause = regexp.MustCompile(`(?i)([\s(])([A-Za-z_.0-9]+) *(not)? *(in) *\(('[^)]+)\)`)

// catch "alias = expression" renaming in the select list. The expression may
// be a column, a quoted literal, or a simple one-argument call such as
// max(_allele_key); strings with embedded spaces are deliberately not handled.
var renameClause = regexp.MustCompile(`(\s)([A-Za-z_0-9]+) *= *(['A-Za-z0-9_.]+(?:\([A-Za-z0-9_.']*\))?)`)

// Generic converts one legacy-dialect statement into portable SQL. It never
// fails; unrecognized text is returned unchanged. Backend-specific idioms
// (temp tables, CONVERT shapes, DELETE..USING) are handled separately by the
// dialect package so that callers can compose the two passes as needed.
func Generic(cmd string) string {
	// legacy code quotes string literals with double quotes
	out := strings.ReplaceAll(cmd, `"`, `'`)

	out = rewriteExec(out)

	// verbatim substitutions for known legacy idioms
	out = strings.ReplaceAll(out, ".offset", ".cmOffset")
	out = strings.ReplaceAll(out, " like ", " ilike ")
	out = strings.ReplaceAll(out, " LIKE ", " ILIKE ")
	out = strings.ReplaceAll(out, " null ", " NULL ")

	out = RewriteNullComparisons(out)

	// equals and IN comparisons in the WHERE section are made case
	// insensitive to match the legacy engine's collation behavior
	if wherePos := indexEither(out, "where", "WHERE"); wherePos >= 0 {
		out = rewriteEquals(out, wherePos)
		if wherePos = indexEither(out, "where", "WHERE"); wherePos >= 0 {
			out = rewriteIn(out, wherePos)
		}
	}

	return rewriteSelectRenames(out)
}

// rewriteExec converts a leading "EXEC name args" stored-procedure call into
// a select over the equivalent callable function.
func rewriteExec(cmd string) string {
	m := execCall.FindStringSubmatch(cmd)
	if m == nil {
		return cmd
	}
	return "select * from " + m[1] + " (" + m[2] + ");"
}

// RewriteNullComparisons converts legacy NULL comparisons into IS [NOT] NULL
// tests. "= NULL" is left alone when an UPDATE keyword occurs earlier in the
// text, since "SET col = NULL" must survive. The guard is a substring scan,
// not statement parsing: a SELECT that mentions the word "update" elsewhere
// is conservatively skipped.
func RewriteNullComparisons(cmd string) string {
	out := strings.ReplaceAll(cmd, "!= NULL", "is not null")

	const probe = "= NULL"
	var b strings.Builder
	last := 0
	for {
		i := strings.Index(out[last:], probe)
		if i < 0 {
			break
		}
		i += last
		if updateBefore(out, i) {
			b.WriteString(out[last : i+len(probe)])
		} else {
			b.WriteString(out[last:i])
			b.WriteString("is null")
		}
		last = i + len(probe)
	}
	b.WriteString(out[last:])
	return b.String()
}

func updateBefore(cmd string, pos int) bool {
	p := indexEither(cmd, "update", "UPDATE")
	return p >= 0 && p < pos
}

func rewriteEquals(cmd string, wherePos int) string {
	var b strings.Builder
	last := 0
	for _, m := range equalClause.FindAllStringSubmatchIndex(cmd, -1) {
		if m[0] < wherePos {
			continue
		}
		b.WriteString(cmd[last:m[0]])
		b.WriteString(cmd[m[2]:m[3]]) // boundary
		b.WriteString("lower(")
		b.WriteString(cmd[m[4]:m[5]]) // identifier
		b.WriteString(") ")
		b.WriteString(cmd[m[6]:m[7]]) // operator
		b.WriteString(" '")
		b.WriteString(strings.ToLower(cmd[m[8]:m[9]]))
		b.WriteString("'")
		last = m[1]
	}
	b.WriteString(cmd[last:])
	return b.String()
}

func rewriteIn(cmd string, wherePos int) string {
	var b strings.Builder
	last := 0
	for _, m := range inClause.FindAllStringSubmatchIndex(cmd, -1) {
		if m[0] < wherePos {
			continue
		}
		op := "in"
		if m[6] >= 0 { // the optional NOT group matched
			op = "not in"
		}
		b.WriteString(cmd[last:m[0]])
		b.WriteString(cmd[m[2]:m[3]]) // boundary
		b.WriteString("lower(")
		b.WriteString(cmd[m[4]:m[5]]) // identifier
		b.WriteString(") ")
		b.WriteString(op)
		b.WriteString(" (")
		b.WriteString(strings.ToLower(cmd[m[10]:m[11]])) // literal list
		b.WriteString(")")
		last = m[1]
	}
	b.WriteString(cmd[last:])
	return b.String()
}

// rewriteSelectRenames converts legacy "alias = expression" column naming in
// the select list into "expression AS alias". UPDATE statements use the same
// surface syntax for assignments and must be returned untouched, so the whole
// rewrite is skipped when the first UPDATE keyword precedes the first SELECT.
// Only text before the first FROM keyword is scanned; matches after it are
// not part of the select list.
func rewriteSelectRenames(cmd string) string {
	if updatePos := indexEither(cmd, "update", "UPDATE"); updatePos >= 0 {
		// a 'select' before an 'update' means the update keyword is
		// just part of a WHERE clause, so the rewrite may proceed
		selectPos := indexEither(cmd, "select", "SELECT")
		if selectPos < 0 || selectPos > updatePos {
			return cmd
		}
	}

	fromPos := indexEither(cmd, "from", "FROM")
	if fromPos < 0 {
		return cmd
	}

	var b strings.Builder
	last := 0
	for _, m := range renameClause.FindAllStringSubmatchIndex(cmd, -1) {
		if m[1] >= fromPos {
			break
		}
		b.WriteString(cmd[last:m[0]])
		b.WriteString(cmd[m[2]:m[3]]) // boundary
		b.WriteString(cmd[m[6]:m[7]]) // expression
		b.WriteString(" as ")
		b.WriteString(cmd[m[4]:m[5]]) // alias
		last = m[1]
	}
	b.WriteString(cmd[last:])
	return b.String()
}

// indexEither returns the position of the first occurrence of either needle,
// mirroring the legacy lowercase-then-uppercase keyword probing.
func indexEither(s, lower, upper string) int {
	if i := strings.Index(s, lower); i >= 0 {
		return i
	}
	return strings.Index(s, upper)
}
