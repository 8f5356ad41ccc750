package data

import (
	_ "embed"
)

//go:embed initdb/postgres/001-extensions.sql
var InitdbPostgresExtensions string
