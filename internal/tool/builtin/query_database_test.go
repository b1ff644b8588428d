package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anforahq/anfora/internal/db"
)

func TestQueryTool_RejectsNonSelect(t *testing.T) {
	called := false
	tool := &QueryTool{
		RowLimit: 10,
		Run: func(ctx context.Context, query string) (*db.Result, error) {
			called = true
			return nil, nil
		},
	}

	for _, query := range []string{
		"DROP TABLE person.person",
		"DELETE FROM sales.salesorderheader",
		"UPDATE person.person SET firstname = 'x'",
		"INSERT INTO person.person VALUES (1)",
		"",
	} {
		out, err := tool.Execute(context.Background(), mustJSON(t, map[string]string{"query": query}))
		require.NoError(t, err)
		assert.Equal(t, "Error: Only SELECT queries are allowed for safety.", out)
	}
	assert.False(t, called, "rejected queries must never reach the database")
}

func TestQueryTool_AllowsSelectCaseInsensitive(t *testing.T) {
	var got string
	tool := &QueryTool{
		RowLimit: 10,
		Run: func(ctx context.Context, query string) (*db.Result, error) {
			got = query
			return &db.Result{
				Columns: []string{"count"},
				Rows:    [][]interface{}{{int64(290)}},
			}, nil
		},
	}

	out, err := tool.Execute(context.Background(), mustJSON(t, map[string]string{
		"query": "  select COUNT(*) AS count FROM humanresources.employee  ",
	}))
	require.NoError(t, err)
	assert.Equal(t, "select COUNT(*) AS count FROM humanresources.employee", got)
	assert.Contains(t, out, "Found 1 results:")
	assert.Contains(t, out, "{count: 290}")
}

func TestQueryTool_EmptyResult(t *testing.T) {
	tool := &QueryTool{
		RowLimit: 10,
		Run: func(ctx context.Context, query string) (*db.Result, error) {
			return &db.Result{Columns: []string{"id"}}, nil
		},
	}

	out, err := tool.Execute(context.Background(), mustJSON(t, map[string]string{"query": "SELECT 1 WHERE false"}))
	require.NoError(t, err)
	assert.Equal(t, "Query executed successfully but returned no results.", out)
}

func TestQueryTool_DriverErrorBecomesObservation(t *testing.T) {
	tool := &QueryTool{
		RowLimit: 10,
		Run: func(ctx context.Context, query string) (*db.Result, error) {
			return nil, errors.New(`relation "nope" does not exist`)
		},
	}

	out, err := tool.Execute(context.Background(), mustJSON(t, map[string]string{"query": "SELECT * FROM nope"}))
	require.NoError(t, err)
	assert.Contains(t, out, "Error executing query:")
	assert.Contains(t, out, `relation "nope" does not exist`)
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
