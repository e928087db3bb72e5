package postgres

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var ddlFile string

// defaultDims matches the dimension declared in schema.sql.
const defaultDims = 768

// DDLStatements returns the statements from schema.sql for test and dev
// setup. Splits on semicolons and drops empty fragments.
func DDLStatements() []string {
	return DDLStatementsWithDimensions(defaultDims)
}

// DDLStatementsWithDimensions rewrites the embedding column and index for a
// different vector dimension. The dimension must match the configured
// embedding provider or inserts will fail.
func DDLStatementsWithDimensions(dims int) []string {
	ddl := ddlFile
	if dims != defaultDims {
		ddl = strings.ReplaceAll(ddl, fmt.Sprintf("VECTOR(%d)", defaultDims), fmt.Sprintf("VECTOR(%d)", dims))
	}
	parts := strings.Split(ddl, ";")
	var out []string
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
