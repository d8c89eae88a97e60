// Package db embeds the PostgreSQL schema and the sample catalog.
package db

import _ "embed"

// Schema creates the products, carts and cart_items tables. Every statement
// is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is a JSON array of sample products loaded by the seed tool
// when no input file is given.
//
//go:embed seed/products.json
var SeedProducts []byte
