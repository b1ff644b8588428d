package anthropic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/anforahq/anfora/internal/model/contract"
)

func TestNew(t *testing.T) {
	p := New("test-key", "claude-sonnet-4-20250514", 30*time.Second)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-20250514", p.model)
}

func TestHealth(t *testing.T) {
	p := New("test-key", "claude-sonnet-4-20250514", 0)
	assert.NoError(t, p.Health(context.Background()))
}

func TestConvertMessages_SystemPromptOutOfBand(t *testing.T) {
	system, messages := convertMessages([]contract.Message{
		{Role: contract.RoleSystem, Content: "You are a business assistant."},
		{Role: contract.RoleUser, Content: "Any unread emails?"},
	})

	assert.Equal(t, "You are a business assistant.", system)
	require.Len(t, messages, 1)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role)
}

func TestConvertMessages_RoleMapping(t *testing.T) {
	cases := []struct {
		name     string
		message  contract.Message
		wantRole anthropic.MessageParamRole
	}{
		{
			name:     "user turn",
			message:  contract.Message{Role: contract.RoleUser, Content: "hello"},
			wantRole: anthropic.MessageParamRoleUser,
		},
		{
			name:     "assistant text turn",
			message:  contract.Message{Role: contract.RoleAssistant, Content: "hi there"},
			wantRole: anthropic.MessageParamRoleAssistant,
		},
		{
			name: "tool observation rides in a user turn",
			message: contract.Message{
				Role:       contract.RoleTool,
				ToolCallID: "toolu_01",
				Content:    "Found 2 results:\nrow data",
			},
			wantRole: anthropic.MessageParamRoleUser,
		},
		{
			name:     "unrecognized role falls back to user",
			message:  contract.Message{Role: "function", Content: "legacy"},
			wantRole: anthropic.MessageParamRoleUser,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, messages := convertMessages([]contract.Message{tc.message})
			require.Len(t, messages, 1)
			assert.Equal(t, tc.wantRole, messages[0].Role)
			require.NotEmpty(t, messages[0].Content)
		})
	}
}

func TestConvertMessages_AssistantToolUseBlocks(t *testing.T) {
	_, messages := convertMessages([]contract.Message{
		{
			Role:    contract.RoleAssistant,
			Content: "Let me check the database.",
			ToolCalls: []*contract.ToolCall{
				{ID: "toolu_01", Name: "query_database", Input: `{"query":"SELECT 1"}`},
				{ID: "toolu_02", Name: "list_tables", Input: `not json`},
			},
		},
	})

	require.Len(t, messages, 1)
	require.Len(t, messages[0].Content, 3)

	text := messages[0].Content[0].OfText
	require.NotNil(t, text)
	assert.Equal(t, "Let me check the database.", text.Text)

	use := messages[0].Content[1].OfToolUse
	require.NotNil(t, use)
	assert.Equal(t, "toolu_01", use.ID)
	assert.Equal(t, "query_database", use.Name)
	assert.Equal(t, map[string]interface{}{"query": "SELECT 1"}, use.Input)

	// Unparseable arguments degrade to an empty object rather than failing.
	use = messages[0].Content[2].OfToolUse
	require.NotNil(t, use)
	assert.Equal(t, map[string]interface{}{}, use.Input)
}

func TestConvertMessages_ToolResultKeepsCallID(t *testing.T) {
	_, messages := convertMessages([]contract.Message{
		{Role: contract.RoleTool, ToolCallID: "toolu_07", Content: "No unread emails found in inbox."},
	})

	require.Len(t, messages, 1)
	require.Len(t, messages[0].Content, 1)
	result := messages[0].Content[0].OfToolResult
	require.NotNil(t, result)
	assert.Equal(t, "toolu_07", result.ToolUseID)
}

func TestConvertTools(t *testing.T) {
	tools := convertTools([]contract.ToolDef{
		{
			Name:        "query_database",
			Description: "Run a read-only SQL query.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
				},
				"required": []string{"query"},
			},
		},
		{Name: "list_tables", Description: "List schema."},
	})

	require.Len(t, tools, 2)

	first := tools[0].OfTool
	require.NotNil(t, first)
	assert.Equal(t, "query_database", first.Name)
	assert.Contains(t, first.InputSchema.Properties, "query")

	// A tool without parameters still carries an empty properties object.
	second := tools[1].OfTool
	require.NotNil(t, second)
	assert.NotNil(t, second.InputSchema.Properties)
	assert.Empty(t, second.InputSchema.Properties)
}
