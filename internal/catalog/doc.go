// Package catalog defines the entity kinds that can be imported: finish
// options, stock items and customers.
//
// Each kind is an imports.Definition plus a store.Mapping onto its
// PostgreSQL table. Register wires every kind into an imports.Registry
// backed by either PostgreSQL or in-memory stores.
package catalog
