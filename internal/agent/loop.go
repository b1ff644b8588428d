package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anforahq/anfora/internal/logger"
	"github.com/anforahq/anfora/internal/model"
	"github.com/anforahq/anfora/internal/model/contract"
	"github.com/anforahq/anfora/internal/tool"
)

const fallbackAnswer = "I'm sorry, I was unable to produce an answer for that request."

// Loop drives the tool-calling conversation with the model. Each round
// either ends with a final answer or with tool calls whose observations are
// fed back for the next round.
type Loop struct {
	Provider     model.Provider
	Runner       *tool.Runner
	Model        string
	SystemPrompt string
	MaxRounds    int
}

// Run executes the conversation until the model answers without tool calls
// or the round cap is hit. Tool failures are observations, never errors;
// only a provider failure aborts the request.
func (l *Loop) Run(ctx context.Context, history []contract.Message, userMessage string) (string, []tool.InvocationRecord, error) {
	maxRounds := l.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 10
	}

	messages := make([]contract.Message, 0, len(history)+2)
	if l.SystemPrompt != "" {
		messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: l.SystemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, contract.Message{Role: contract.RoleUser, Content: userMessage})

	tools := l.Runner.Descriptors()
	requestID := logger.GetRequestID(ctx)
	trace := []tool.InvocationRecord{}

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return "", trace, err
		}

		resp, err := l.Provider.Generate(ctx, contract.CompletionRequest{
			Model:    l.Model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return "", trace, fmt.Errorf("model request failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			answer := resp.Content
			if answer == "" {
				answer = fallbackAnswer
			}
			slog.Info("Agent finished", "rounds", round, "tool_calls", len(trace), "request_id", requestID)
			return answer, trace, nil
		}

		messages = append(messages, contract.Message{
			Role:      contract.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			observation, record := l.Runner.Execute(ctx, call.Name, json.RawMessage(call.Input))
			trace = append(trace, record)
			messages = append(messages, contract.Message{
				Role:       contract.RoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	slog.Warn("Agent hit round cap", "max_rounds", maxRounds, "tool_calls", len(trace), "request_id", requestID)
	return fmt.Sprintf("I could not complete the request within %d tool rounds. Here is what I found so far; please narrow the question and try again.", maxRounds), trace, nil
}
