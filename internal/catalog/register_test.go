package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

func TestRegister(t *testing.T) {
	reg := imports.NewRegistry()
	Register(reg, Deps{})

	var kinds []string
	for _, info := range reg.Kinds() {
		kinds = append(kinds, info.Kind)
	}
	want := "finish_options,customers,stock_items"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("Kinds() = %s, want %s", got, want)
	}
}

func TestCustomers_PreviewAndCommit(t *testing.T) {
	reg := imports.NewRegistry()
	Register(reg, Deps{})
	imp, err := reg.Get("customers")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	ctx := context.Background()

	const file = "Klantnummer;Naam;Plaats;Korting\n" +
		"1001;Bakker BV;Utrecht;5\n" +
		"1002;Jansen;Zwolle;0\n" +
		"1001;Bakker B.V.;Utrecht;7,5\n"

	preview := func() *imports.PreviewView {
		t.Helper()
		table, err := imports.ReadCSV(strings.NewReader(file), imp.Info().ReadOptions())
		if err != nil {
			t.Fatalf("ReadCSV() error = %v", err)
		}
		view, err := imp.PreviewTable(ctx, table, imports.Locale{})
		if err != nil {
			t.Fatalf("PreviewTable() error = %v", err)
		}
		return view
	}

	view := preview()
	if view.Summary.InsertCount != 2 || view.Summary.SkippedCount != 1 {
		t.Fatalf("Summary = %+v, want 2 inserts and 1 superseded skip", view.Summary)
	}
	if view.Rows[0].Superseded != 4 {
		t.Errorf("Rows[0].Superseded = %d, want 4", view.Rows[0].Superseded)
	}

	rcpt, err := imp.Commit(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if rcpt.Status != imports.StatusCompleted || rcpt.Inserted != 2 {
		t.Errorf("Commit() = %+v, want completed with 2 inserted", rcpt)
	}

	again := preview()
	if again.Summary.InsertCount != 0 || again.Summary.UpdateCount != 0 {
		t.Errorf("second preview Summary = %+v, want nothing to write", again.Summary)
	}
	if again.Committable() {
		t.Error("Committable() = true for an unchanged file")
	}
}

func TestFinishOptions_RoundedValuesAreIdempotent(t *testing.T) {
	reg := imports.NewRegistry()
	Register(reg, Deps{})
	imp, err := reg.Get("finish_options")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	ctx := context.Background()

	const file = "Naam;Groep;Volgnummer;KostprijsPerM2;Marge\n" +
		"Wit mat;1;A;12,50001;12,555\n"

	for run := 1; run <= 2; run++ {
		table, err := imports.ReadCSV(strings.NewReader(file), imp.Info().ReadOptions())
		if err != nil {
			t.Fatalf("ReadCSV() error = %v", err)
		}
		view, err := imp.PreviewTable(ctx, table, imports.Locale{})
		if err != nil {
			t.Fatalf("PreviewTable() error = %v", err)
		}
		if !view.Rows[0].Valid {
			t.Fatalf("run %d: row invalid: %v", run, view.Rows[0].Issues)
		}

		switch run {
		case 1:
			if view.Summary.InsertCount != 1 {
				t.Fatalf("run 1 Summary = %+v, want 1 insert", view.Summary)
			}
			if !hasMessage(view.Rows[0].Issues, "Marge", "rounded to 12.56") {
				t.Errorf("run 1 issues = %v, want Marge rounded to 12.56", view.Rows[0].Issues)
			}
			rcpt, err := imp.Commit(ctx, view.SessionID)
			if err != nil || rcpt.Inserted != 1 {
				t.Fatalf("Commit() = %+v, %v, want 1 inserted", rcpt, err)
			}
		case 2:
			if view.Summary.UpdateCount != 0 || view.Summary.SkippedCount != 1 {
				t.Errorf("run 2 Summary = %+v, want the row unchanged", view.Summary)
			}
		}
	}
}

func hasMessage(issues []imports.Issue, col, msg string) bool {
	for _, is := range issues {
		if is.ColumnName == col && is.Message == msg {
			return true
		}
	}
	return false
}
