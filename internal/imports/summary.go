package imports

// Summarize reduces classified rows into batch counters.
// InsertCount + UpdateCount + SkippedCount always equals ValidRows.
func Summarize[T any](rows []ClassifiedRow[T]) Summary {
	s := Summary{TotalRows: len(rows)}
	for _, r := range rows {
		if r.HasWarnings() {
			s.WarningRows++
		}
		if !r.IsValid() {
			continue
		}
		s.ValidRows++
		switch r.Action {
		case ActionInsert:
			s.InsertCount++
		case ActionUpdate:
			s.UpdateCount++
		default:
			s.SkippedCount++
		}
	}
	s.InvalidRows = s.TotalRows - s.ValidRows
	return s
}
