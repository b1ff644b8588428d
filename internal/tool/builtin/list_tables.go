package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anforahq/anfora/internal/db"
	toolcore "github.com/anforahq/anfora/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("list_tables_with_schemas", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		cfg := options.Database
		return &ListTablesTool{
			Describe: func(ctx context.Context) (string, error) {
				return db.DescribeSchema(ctx, cfg)
			},
		}, nil
	})
}

// ListTablesTool exposes the database schema so the model can write correct
// queries instead of guessing column names.
type ListTablesTool struct {
	Describe func(ctx context.Context) (string, error)
}

func (t *ListTablesTool) Name() string { return "list_tables_with_schemas" }

func (t *ListTablesTool) Description() string {
	return "List every table in the database with its columns, data types, and nullability."
}

func (t *ListTablesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListTablesTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	schema, err := t.Describe(ctx)
	if err != nil {
		return fmt.Sprintf("Error reading schema: %v", err), nil
	}
	return schema, nil
}
