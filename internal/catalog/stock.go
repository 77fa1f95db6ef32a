package catalog

import (
	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/shopspring/decimal"
)

// StockTypes is the reference group stock item types point into.
const StockTypes = "stock_types"

// StockUnits are the units stock can be counted in.
var StockUnits = []string{"stuk", "m2", "m1", "doos"}

// StockItem is a supplier article held in stock.
type StockItem struct {
	ArticleNumber string          `json:"artikelnummer" col:"Artikelnummer" validate:"max=50"`
	Supplier      string          `json:"leverancier" col:"Leverancier" validate:"max=50"`
	Description   string          `json:"omschrijving" col:"Omschrijving" validate:"max=200"`
	Quantity      int64           `json:"voorraad" col:"Voorraad" validate:"gte=0"`
	Unit          string          `json:"eenheid" col:"Eenheid"`
	Price         decimal.Decimal `json:"prijs" col:"Prijs"`
	Type          string          `json:"type" col:"Type"`
}

// StockItemKey is "ARTIKELNUMMER|LEVERANCIER".
func StockItemKey(s StockItem) string {
	return upper(s.ArticleNumber) + "|" + upper(s.Supplier)
}

// StockItems returns the stock_items kind.
func StockItems() *imports.Definition[StockItem] {
	return &imports.Definition[StockItem]{
		Kind:  "stock_items",
		Group: "Stock",
		Label: "Stock items",
		Fields: []imports.FieldSpec{
			{Name: "Artikelnummer", Aliases: []string{"Artikelnr"}, Type: imports.FieldText, Required: true},
			{Name: "Leverancier", Type: imports.FieldText, Required: true, Normalizer: upper},
			{Name: "Omschrijving", Type: imports.FieldText},
			{Name: "Voorraad", Type: imports.FieldInt},
			{Name: "Eenheid", Type: imports.FieldEnum, EnumValues: StockUnits},
			{Name: "Prijs", Type: imports.FieldDecimal},
			{Name: "Type", Type: imports.FieldText},
		},
		Build: func(v imports.Values) StockItem {
			return StockItem{
				ArticleNumber: v.Text("Artikelnummer"),
				Supplier:      v.Text("Leverancier"),
				Description:   v.Text("Omschrijving"),
				Quantity:      v.Int("Voorraad"),
				Unit:          v.Text("Eenheid"),
				Price:         v.Decimal("Prijs"),
				Type:          v.Text("Type"),
			}
		},
		Check: func(v imports.Values, rec *StockItem, refs imports.References, r *imports.Reporter) {
			nonNegative(v, r, "Prijs")
			imports.FitNumeric(v, r, "Prijs", &rec.Price, 12, 4)
			imports.Resolves(v, r, refs, "Type", StockTypes)
		},
		Key: StockItemKey,
		Diff: func(in, ex StockItem) []string {
			var d differ
			d.text("Omschrijving", in.Description, ex.Description)
			d.num("Voorraad", in.Quantity, ex.Quantity)
			d.text("Eenheid", in.Unit, ex.Unit)
			d.dec("Prijs", in.Price, ex.Price)
			d.text("Type", in.Type, ex.Type)
			return d
		},
	}
}
