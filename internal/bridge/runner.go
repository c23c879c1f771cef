package bridge

import (
	"strings"

	"sqlbridge/internal/translate"
)

// RowFunc consumes one projected row of a statement's result. Returning an
// error stops the batch; already-executed statements stay pending in the
// shared transaction until the caller commits or rolls back.
type RowFunc func(Row) error

// Batch describes a sequence of legacy-dialect statements to run in order on
// one shared connection. Callbacks and RowLimits, when non-nil, must be
// parallel to Commands. A nil callback entry means the statement's result is
// collected and returned instead of streamed.
type Batch struct {
	Commands  []string
	Callbacks []RowFunc
	RowLimits []int
}

// Run executes the batch. Each command goes through row-limit injection (on
// select statements with a positive limit), the generic translation pass, and
// the backend-specific pass, in that order and each gated by the manager's
// settings. The returned slice is parallel to Commands: a collected *Result
// per statement, nil for statements consumed by a callback or producing no
// result. Nothing is committed; that stays the caller's decision.
func (m *Manager) Run(b Batch) ([]*Result, error) {
	if b.Callbacks != nil && len(b.Callbacks) != len(b.Commands) {
		return nil, &ArityError{Commands: len(b.Commands), Callbacks: len(b.Callbacks), Limits: len(b.RowLimits)}
	}
	if b.RowLimits != nil && len(b.RowLimits) != len(b.Commands) {
		return nil, &ArityError{Commands: len(b.Commands), Callbacks: len(b.Callbacks), Limits: len(b.RowLimits)}
	}

	results := make([]*Result, 0, len(b.Commands))
	for i, cmd := range b.Commands {
		if b.RowLimits != nil && b.RowLimits[i] > 0 && isSelect(cmd) {
			// the limit clause wears the target engine's syntax, so it goes
			// on before translation can touch the rest of the statement
			cmd = m.dialect.LimitQuery(cmd, b.RowLimits[i])
		}
		if m.translate {
			cmd = translate.Generic(cmd)
		}
		if m.backendTranslate {
			cmd = m.dialect.Translate(cmd)
		}

		res, err := m.Execute(cmd)
		if err != nil {
			return nil, err
		}

		if b.Callbacks != nil && b.Callbacks[i] != nil {
			if res != nil {
				for _, row := range res.Legacy() {
					if err := b.Callbacks[i](row); err != nil {
						return nil, err
					}
				}
			}
			results = append(results, nil)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// RunOne translates and executes a single statement.
func (m *Manager) RunOne(cmd string) (*Result, error) {
	results, err := m.Run(Batch{Commands: []string{cmd}})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func isSelect(cmd string) bool {
	return strings.Contains(cmd, "select") || strings.Contains(cmd, "SELECT")
}
