package catalog

import (
	"strconv"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/shopspring/decimal"
)

// Customer is a trade customer with an optional standing discount.
type Customer struct {
	Number   int64           `json:"klantnummer" col:"Klantnummer" validate:"gt=0"`
	Name     string          `json:"naam" col:"Naam" validate:"required,max=100"`
	Email    string          `json:"email" col:"Email" validate:"omitempty,email"`
	Phone    string          `json:"telefoon" col:"Telefoon" validate:"max=30"`
	City     string          `json:"plaats" col:"Plaats" validate:"max=100"`
	Discount decimal.Decimal `json:"korting" col:"Korting"`
}

// CustomerKey is the customer number.
func CustomerKey(c Customer) string {
	return strconv.FormatInt(c.Number, 10)
}

// Customers returns the customers kind.
func Customers() *imports.Definition[Customer] {
	return &imports.Definition[Customer]{
		Kind:  "customers",
		Group: "Relations",
		Label: "Customers",
		Fields: []imports.FieldSpec{
			{Name: "Klantnummer", Aliases: []string{"Klantnr"}, Type: imports.FieldInt, Required: true},
			{Name: "Naam", Type: imports.FieldText, Required: true},
			{Name: "Email", Aliases: []string{"E-mail"}, Type: imports.FieldText},
			{Name: "Telefoon", Type: imports.FieldText},
			{Name: "Plaats", Type: imports.FieldText},
			{Name: "Korting", Type: imports.FieldDecimal},
		},
		Build: func(v imports.Values) Customer {
			return Customer{
				Number:   v.Int("Klantnummer"),
				Name:     v.Text("Naam"),
				Email:    v.Text("Email"),
				Phone:    v.Text("Telefoon"),
				City:     v.Text("Plaats"),
				Discount: v.Decimal("Korting"),
			}
		},
		Check: func(v imports.Values, rec *Customer, _ imports.References, r *imports.Reporter) {
			imports.InRange(v, r, "Korting", zero, hundred)
			imports.FitNumeric(v, r, "Korting", &rec.Discount, 6, 2)
		},
		Key: CustomerKey,
		Diff: func(in, ex Customer) []string {
			var d differ
			d.text("Naam", in.Name, ex.Name)
			d.text("Email", in.Email, ex.Email)
			d.text("Telefoon", in.Phone, ex.Phone)
			d.text("Plaats", in.City, ex.City)
			d.dec("Korting", in.Discount, ex.Discount)
			return d
		},
	}
}
