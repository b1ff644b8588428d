package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anforahq/anfora/internal/db"
	toolcore "github.com/anforahq/anfora/internal/tool"
)

const defaultQueryRowLimit = 10

func init() {
	toolcore.RegisterBuiltin("query_database", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		rowLimit := options.Tools.Query.RowLimit
		if rowLimit <= 0 {
			rowLimit = defaultQueryRowLimit
		}
		cfg := options.Database
		return &QueryTool{
			RowLimit: rowLimit,
			Run: func(ctx context.Context, query string) (*db.Result, error) {
				return db.RunQuery(ctx, cfg, query)
			},
		}, nil
	})
}

// QueryTool runs read-only SQL against the business database. Run is
// exported so tests can observe whether the database is touched at all.
type QueryTool struct {
	RowLimit int
	Run      func(ctx context.Context, query string) (*db.Result, error)
}

type queryInput struct {
	Query string `json:"query"`
}

func (t *QueryTool) Name() string { return "query_database" }

func (t *QueryTool) Description() string {
	return "Execute a read-only SQL SELECT query against the AdventureWorks database and return the matching rows."
}

func (t *QueryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "A single SQL SELECT statement",
			},
		},
		"required": []string{"query"},
	}
}

func (t *QueryTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args queryInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	query := strings.TrimSpace(args.Query)
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		// The model reads this and reformulates; the database is never touched.
		return "Error: Only SELECT queries are allowed for safety.", nil
	}

	result, err := t.Run(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error executing query: %v", err), nil
	}

	return db.FormatResult(result, t.RowLimit), nil
}
