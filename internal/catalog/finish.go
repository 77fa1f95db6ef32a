package catalog

import (
	"fmt"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/shopspring/decimal"
)

// FinishGroups is the reference group finish options point into.
const FinishGroups = "finish_groups"

// FinishOption is a surface finish that can be ordered per square metre.
type FinishOption struct {
	Name      string          `json:"naam" col:"Naam" validate:"max=100"`
	Group     int64           `json:"groep" col:"Groep"`
	Seq       rune            `json:"volgnummer" col:"Volgnummer"`
	CostPerM2 decimal.Decimal `json:"kostprijsPerM2" col:"KostprijsPerM2"`
	Margin    decimal.Decimal `json:"marge" col:"Marge"`
	Active    bool            `json:"actief" col:"Actief"`
}

// FinishOptionKey is "Groep|Volgnummer".
func FinishOptionKey(f FinishOption) string {
	return fmt.Sprintf("%d|%c", f.Group, f.Seq)
}

// FinishOptions returns the finish_options kind.
func FinishOptions() *imports.Definition[FinishOption] {
	return &imports.Definition[FinishOption]{
		Kind:  "finish_options",
		Group: "Catalog",
		Label: "Finish options",
		Fields: []imports.FieldSpec{
			{Name: "Naam", Type: imports.FieldText, Required: true},
			{Name: "Groep", Type: imports.FieldInt},
			{Name: "Volgnummer", Aliases: []string{"VolgnummerRaw"}, Type: imports.FieldCode, Required: true},
			{Name: "KostprijsPerM2", Aliases: []string{"Kostprijs"}, Type: imports.FieldDecimal, Required: true},
			{Name: "Marge", Type: imports.FieldDecimal},
			{Name: "Actief", Type: imports.FieldBool},
		},
		Build: func(v imports.Values) FinishOption {
			return FinishOption{
				Name:      v.Text("Naam"),
				Group:     v.Int("Groep"),
				Seq:       v.Code("Volgnummer"),
				CostPerM2: v.Decimal("KostprijsPerM2"),
				Margin:    v.Decimal("Marge"),
				Active:    v.Bool("Actief", true),
			}
		},
		Check: func(v imports.Values, rec *FinishOption, refs imports.References, r *imports.Reporter) {
			nonNegative(v, r, "KostprijsPerM2")
			imports.FitNumeric(v, r, "KostprijsPerM2", &rec.CostPerM2, 12, 4)
			imports.InRange(v, r, "Marge", zero, hundred)
			imports.FitNumeric(v, r, "Marge", &rec.Margin, 6, 2)
			imports.Resolves(v, r, refs, "Groep", FinishGroups)
		},
		Key: FinishOptionKey,
		Diff: func(in, ex FinishOption) []string {
			var d differ
			d.text("Naam", in.Name, ex.Name)
			d.dec("KostprijsPerM2", in.CostPerM2, ex.CostPerM2)
			d.dec("Marge", in.Margin, ex.Margin)
			d.flag("Actief", in.Active, ex.Active)
			return d
		},
	}
}
