package catalog

import (
	"github.com/JonMunkholm/catalogimport/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Schema returns the statements creating every catalog table.
func Schema() []string {
	return []string{
		store.ReferencesSchema,
		`CREATE TABLE IF NOT EXISTS finish_options (
			natural_key      text PRIMARY KEY,
			version          bigint NOT NULL,
			naam             text NOT NULL,
			groep            bigint NOT NULL DEFAULT 0,
			volgnummer       char(1) NOT NULL,
			kostprijs_per_m2 numeric(12,4) NOT NULL CHECK (kostprijs_per_m2 >= 0),
			marge            numeric(6,2) NOT NULL DEFAULT 0,
			actief           boolean NOT NULL DEFAULT true,
			updated_at       timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS stock_items (
			natural_key   text PRIMARY KEY,
			version       bigint NOT NULL,
			artikelnummer text NOT NULL,
			leverancier   text NOT NULL,
			omschrijving  text NOT NULL DEFAULT '',
			voorraad      bigint NOT NULL DEFAULT 0 CHECK (voorraad >= 0),
			eenheid       text NOT NULL DEFAULT '',
			prijs         numeric(12,4) NOT NULL DEFAULT 0,
			type          text NOT NULL DEFAULT '',
			updated_at    timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			natural_key text PRIMARY KEY,
			version     bigint NOT NULL,
			klantnummer bigint NOT NULL UNIQUE,
			naam        text NOT NULL,
			email       text NOT NULL DEFAULT '',
			telefoon    text NOT NULL DEFAULT '',
			plaats      text NOT NULL DEFAULT '',
			korting     numeric(6,2) NOT NULL DEFAULT 0,
			updated_at  timestamptz NOT NULL DEFAULT now()
		)`,
	}
}

// FinishOptionMapping maps FinishOption onto finish_options.
var FinishOptionMapping = store.Mapping[FinishOption]{
	Table:   "finish_options",
	Columns: []string{"naam", "groep", "volgnummer", "kostprijs_per_m2", "marge", "actief"},
	Values: func(f FinishOption) []any {
		return []any{f.Name, f.Group, string(f.Seq), toNumeric(f.CostPerM2), toNumeric(f.Margin), f.Active}
	},
	Scan: func(row pgx.Row) (string, int64, FinishOption, error) {
		var (
			key          string
			version      int64
			f            FinishOption
			seq          string
			cost, margin pgtype.Numeric
		)
		err := row.Scan(&key, &version, &f.Name, &f.Group, &seq, &cost, &margin, &f.Active)
		if err != nil {
			return "", 0, f, err
		}
		if r := []rune(seq); len(r) > 0 {
			f.Seq = r[0]
		}
		f.CostPerM2 = fromNumeric(cost)
		f.Margin = fromNumeric(margin)
		return key, version, f, nil
	},
}

// StockItemMapping maps StockItem onto stock_items.
var StockItemMapping = store.Mapping[StockItem]{
	Table:   "stock_items",
	Columns: []string{"artikelnummer", "leverancier", "omschrijving", "voorraad", "eenheid", "prijs", "type"},
	Values: func(s StockItem) []any {
		return []any{s.ArticleNumber, s.Supplier, s.Description, s.Quantity, s.Unit, toNumeric(s.Price), s.Type}
	},
	Scan: func(row pgx.Row) (string, int64, StockItem, error) {
		var (
			key     string
			version int64
			s       StockItem
			price   pgtype.Numeric
		)
		err := row.Scan(&key, &version, &s.ArticleNumber, &s.Supplier, &s.Description, &s.Quantity, &s.Unit, &price, &s.Type)
		s.Price = fromNumeric(price)
		return key, version, s, err
	},
}

// CustomerMapping maps Customer onto customers.
var CustomerMapping = store.Mapping[Customer]{
	Table:   "customers",
	Columns: []string{"klantnummer", "naam", "email", "telefoon", "plaats", "korting"},
	Values: func(c Customer) []any {
		return []any{c.Number, c.Name, c.Email, c.Phone, c.City, toNumeric(c.Discount)}
	},
	Scan: func(row pgx.Row) (string, int64, Customer, error) {
		var (
			key      string
			version  int64
			c        Customer
			discount pgtype.Numeric
		)
		err := row.Scan(&key, &version, &c.Number, &c.Name, &c.Email, &c.Phone, &c.City, &discount)
		c.Discount = fromNumeric(discount)
		return key, version, c, err
	},
}

// toNumeric converts a decimal to pgtype.Numeric.
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// fromNumeric converts pgtype.Numeric to a decimal. NULL and NaN become zero.
func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
