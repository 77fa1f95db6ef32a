package imports

import (
	"fmt"
	"slices"
)

// Existing is a stored record as seen at preview time.
type Existing[T any] struct {
	Record  T
	Version int64
}

// NaturalKeys returns the distinct natural keys of the valid rows, in source order.
func NaturalKeys[T any](def *Definition[T], rows []ParsedRow[T]) []string {
	seen := make(map[string]bool, len(rows))
	var keys []string
	for _, r := range rows {
		if r.Parsed == nil {
			continue
		}
		k := def.Key(*r.Parsed)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Reconcile classifies each valid row as insert, update or skip against the
// existing records, indexed by natural key.
//
// Rows sharing a natural key are resolved in one ordered pass: the last
// occurrence wins and earlier ones are skipped with a "superseded" warning.
// Invalid rows are passed through with ActionNone.
func Reconcile[T any](def *Definition[T], rows []ParsedRow[T], existing map[string]Existing[T]) []ClassifiedRow[T] {
	out := make([]ClassifiedRow[T], len(rows))
	winner := make(map[string]int, len(rows))

	for i, r := range rows {
		out[i] = ClassifiedRow[T]{ParsedRow: r}
		if r.Parsed == nil {
			continue
		}
		key := def.Key(*r.Parsed)
		out[i].NaturalKey = key
		winner[key] = i
	}

	for i := range out {
		row := &out[i]
		if row.Parsed == nil {
			continue
		}

		if w := winner[row.NaturalKey]; w != i {
			row.Issues = append(slices.Clone(row.Issues), Issue{
				RowNumber: row.RowNumber,
				Message:   fmt.Sprintf("superseded by row %d", out[w].RowNumber),
				Severity:  SeverityWarning,
			})
			row.Action = ActionSkip
			row.Superseded = out[w].RowNumber
			continue
		}

		ex, ok := existing[row.NaturalKey]
		if !ok {
			row.Action = ActionInsert
			continue
		}

		row.Version = ex.Version
		if changed := def.Diff(*row.Parsed, ex.Record); len(changed) > 0 {
			row.Action = ActionUpdate
			row.Changed = changed
		} else {
			row.Action = ActionSkip
		}
	}

	return out
}
