package db

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/anforahq/anfora/internal/config"
	anforaErrors "github.com/anforahq/anfora/internal/errors"
)

// Result holds the rows of a completed query in column order.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// DSN builds a postgres connection string from config. Credentials are
// URL-escaped so passwords with special characters survive the round trip.
func DSN(cfg config.DatabaseConfig) string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
	if cfg.SSLMode != "" {
		dsn += "?sslmode=" + url.QueryEscape(cfg.SSLMode)
	}
	return dsn
}

// RunQuery opens a connection, runs a single query, and closes the
// connection. Each tool call gets a fresh connection; there is no pool to
// leak when the model issues a bad query.
func RunQuery(ctx context.Context, cfg config.DatabaseConfig, query string) (*Result, error) {
	conn, err := pgx.Connect(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", anforaErrors.MapError(err))
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", anforaErrors.MapError(err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", anforaErrors.MapError(err))
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute query: %w", anforaErrors.MapError(err))
	}

	return result, nil
}

// FormatResult renders query output the way the model consumes it: an empty
// result gets an explicit sentence, anything else a count header followed by
// up to rowLimit rows as "{col: value, ...}" lines.
func FormatResult(result *Result, rowLimit int) string {
	if result == nil || len(result.Rows) == 0 {
		return "Query executed successfully but returned no results."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n", len(result.Rows))

	limit := len(result.Rows)
	if rowLimit > 0 && limit > rowLimit {
		limit = rowLimit
	}
	for i := 0; i < limit; i++ {
		row := result.Rows[i]
		parts := make([]string, 0, len(row))
		for j, col := range result.Columns {
			var value interface{}
			if j < len(row) {
				value = row[j]
			}
			parts = append(parts, fmt.Sprintf("%s: %v", col, value))
		}
		fmt.Fprintf(&b, "{%s}\n", strings.Join(parts, ", "))
	}
	if len(result.Rows) > limit {
		fmt.Fprintf(&b, "... and %d more rows\n", len(result.Rows)-limit)
	}

	return b.String()
}

type column struct {
	name     string
	dataType string
	nullable bool
}

// DescribeSchema walks information_schema and renders every user table with
// its columns, types, and nullability.
func DescribeSchema(ctx context.Context, cfg config.DatabaseConfig) (string, error) {
	conn, err := pgx.Connect(ctx, DSN(cfg))
	if err != nil {
		return "", fmt.Errorf("connect to database: %w", anforaErrors.MapError(err))
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `
		SELECT table_schema, table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
		ORDER BY table_schema, table_name, ordinal_position
	`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", anforaErrors.MapError(err))
	}
	defer rows.Close()

	tables := map[string][]column{}
	var names []string
	for rows.Next() {
		var schema, table, col, dataType, nullable string
		if err := rows.Scan(&schema, &table, &col, &dataType, &nullable); err != nil {
			return "", fmt.Errorf("read schema: %w", anforaErrors.MapError(err))
		}
		key := schema + "." + table
		if _, seen := tables[key]; !seen {
			names = append(names, key)
		}
		tables[key] = append(tables[key], column{
			name:     col,
			dataType: dataType,
			nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read schema: %w", anforaErrors.MapError(err))
	}

	return formatSchema(names, tables), nil
}

func formatSchema(names []string, tables map[string][]column) string {
	if len(names) == 0 {
		return "No tables found."
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	var b strings.Builder
	for _, name := range sorted {
		fmt.Fprintf(&b, "Table: %s\n", name)
		for _, col := range tables[name] {
			constraint := "NOT NULL"
			if col.nullable {
				constraint = "NULL"
			}
			fmt.Fprintf(&b, "  %s: %s %s\n", col.name, col.dataType, constraint)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
