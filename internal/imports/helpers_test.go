package imports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// testItem is a small entity covering every field type.
type testItem struct {
	Code  string          `col:"Code"`
	Name  string          `col:"Naam" validate:"max=10"`
	Group int64           `col:"Groep"`
	Seq   rune            `col:"Volgnummer"`
	Price decimal.Decimal `col:"Prijs"`
	Unit  string          `col:"Eenheid"`
	Email string          `col:"Email" validate:"omitempty,email"`
}

func testDefinition() *Definition[testItem] {
	return &Definition[testItem]{
		Kind:  "test_items",
		Group: "Test",
		Label: "Test items",
		Fields: []FieldSpec{
			{Name: "Code", Type: FieldText, Required: true},
			{Name: "Naam", Type: FieldText, Required: true},
			{Name: "Groep", Type: FieldInt},
			{Name: "Volgnummer", Aliases: []string{"VolgnummerRaw"}, Type: FieldCode, Required: true},
			{Name: "Prijs", Type: FieldDecimal, Required: true},
			{Name: "Eenheid", Type: FieldEnum, EnumValues: []string{"stuk", "m2"}},
			{Name: "Email", Type: FieldText},
		},
		Build: func(v Values) testItem {
			return testItem{
				Code:  v.Text("Code"),
				Name:  v.Text("Naam"),
				Group: v.Int("Groep"),
				Seq:   v.Code("Volgnummer"),
				Price: v.Decimal("Prijs"),
				Unit:  v.Text("Eenheid"),
				Email: v.Text("Email"),
			}
		},
		Check: func(v Values, rec *testItem, refs References, r *Reporter) {
			InRange(v, r, "Prijs", decimal.Zero, decimal.NewFromInt(1000))
			Resolves(v, r, refs, "Groep", "groups")
		},
		Key: func(rec testItem) string { return rec.Code },
		Diff: func(in, ex testItem) []string {
			var changed []string
			if in.Name != ex.Name {
				changed = append(changed, "Naam")
			}
			if !in.Price.Equal(ex.Price) {
				changed = append(changed, "Prijs")
			}
			if in.Unit != ex.Unit {
				changed = append(changed, "Eenheid")
			}
			return changed
		},
	}
}

func testRefs() RefSet {
	refs := RefSet{}
	refs.Add("groups", "1")
	refs.Add("groups", "2")
	return refs
}

// cells builds a row from alternating column/value pairs.
func cells(number int, kv ...string) RawRow {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return NewRawRow(number, m)
}

// validRow returns a complete valid row for code.
func validRow(number int, code, name, price string) RawRow {
	return cells(number,
		"Code", code,
		"Naam", name,
		"Groep", "1",
		"Volgnummer", "A",
		"Prijs", price,
		"Eenheid", "stuk",
		"Email", "",
	)
}

func hasIssue(issues []Issue, column, message string, sev Severity) bool {
	for _, is := range issues {
		if is.ColumnName == column && is.Message == message && is.Severity == sev {
			return true
		}
	}
	return false
}

// fakeStore is an in-memory Store used by pipeline tests.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]Existing[testItem]
	refs     RefSet
	failKeys map[string]bool // writes to these keys fail
	applies  int
	lookups  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[string]Existing[testItem]),
		refs:     testRefs(),
		failKeys: make(map[string]bool),
	}
}

func (s *fakeStore) put(rec testItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex := s.records[rec.Code]
	s.records[rec.Code] = Existing[testItem]{Record: rec, Version: ex.Version + 1}
}

func (s *fakeStore) get(code string) (Existing[testItem], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.records[code]
	return ex, ok
}

func (s *fakeStore) References(ctx context.Context) (RefSet, error) {
	return s.refs, nil
}

func (s *fakeStore) Lookup(ctx context.Context, keys []string) (map[string]Existing[testItem], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	out := make(map[string]Existing[testItem])
	for _, k := range keys {
		if ex, ok := s.records[k]; ok {
			out[k] = ex
		}
	}
	return out, nil
}

func (s *fakeStore) Apply(ctx context.Context, b Batch[testItem]) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++

	for _, g := range b.Guards {
		if s.records[g.Key].Version != g.Version {
			return ApplyResult{}, fmt.Errorf("%s: %w", g.Key, ErrStalePreview)
		}
	}
	if err := ctx.Err(); err != nil {
		return ApplyResult{}, err
	}

	next := make(map[string]Existing[testItem], len(s.records))
	for k, v := range s.records {
		next[k] = v
	}

	var res ApplyResult
	for _, op := range b.Ops {
		if s.failKeys[op.Key] {
			if b.Policy == CommitAtomic {
				return ApplyResult{}, errors.New("write failed: check constraint")
			}
			res.Failures = append(res.Failures, RowFailure{RowNumber: op.RowNumber, NaturalKey: op.Key, Reason: "check constraint"})
			continue
		}
		next[op.Key] = Existing[testItem]{Record: op.Record, Version: next[op.Key].Version + 1}
		if op.Action == ActionInsert {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	s.records = next
	return res, nil
}
