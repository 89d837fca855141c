// Package db provides the embedded database schema for the checkout store.
package db

import _ "embed"

// Schema contains the DDL statements for the order graph tables.
//
//go:embed migrations/001_schema.sql
var Schema string
