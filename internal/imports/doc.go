// Package imports previews and commits spreadsheet imports of catalog data.
//
// An import runs in two steps. Preview reads a file into RawRows, validates
// every row against a Definition, reconciles the valid rows with the stored
// records and keeps the result as a session. Commit writes the Insert and
// Update rows of a session in one unit, after checking that the stored
// records did not change since the preview.
//
// # Definitions
//
// Each entity kind is described by a [Definition]: its columns as
// [FieldSpec]s, how to build a record from converted [Values], cross-field
// checks, the natural key and the comparable fields:
//
//	def := &imports.Definition[Customer]{
//	    Kind:   "customers",
//	    Fields: []imports.FieldSpec{
//	        {Name: "Klantnummer", Type: imports.FieldInt, Required: true},
//	        {Name: "Naam", Required: true},
//	    },
//	    Build: buildCustomer,
//	    Key:   func(c Customer) string { return strconv.FormatInt(c.Klantnummer, 10) },
//	    Diff:  diffCustomer,
//	}
//
// # Issues
//
// Validation never stops at the first problem. Every finding is an [Issue]
// with a [Severity]; only Error blocks a row. File-level findings are batch
// issues (RowNumber 0) and an Error among them blocks the whole commit.
//
// # Commits
//
// A [Pipeline] serializes commits per target table and bounds them with a
// timeout. The [Store] checks a [Guard] per natural key before writing; a
// stale preview yields a Failed receipt with no effect. With [CommitAtomic]
// any write error rolls back the batch; with [CommitPartial] failing rows are
// reported in the receipt and the rest is committed.
//
// # Error Handling
//
// Technical errors are mapped to user messages with support codes by
// [MapError]: DB0xx database, VAL0xx file validation, FILE0xx files,
// IMP0xx sessions and commits, REQ0xx requests, ERR000 unknown.
package imports
