package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anforahq/anfora/internal/model/contract"
	"github.com/anforahq/anfora/internal/tool"
)

// scriptedProvider replays a fixed sequence of responses and records every
// request it receives.
type scriptedProvider struct {
	responses []*contract.CompletionResponse
	err       error
	requests  []contract.CompletionRequest
}

func (p *scriptedProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &contract.CompletionResponse{Content: "done"}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Health(ctx context.Context) error { return nil }

type echoTool struct{ name string }

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "echo" }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (t *echoTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return "observed:" + string(input), nil
}

func newLoop(p *scriptedProvider, tools ...tool.Tool) *Loop {
	registry := tool.NewRegistry()
	for _, t := range tools {
		registry.Register(t)
	}
	return &Loop{
		Provider:     p,
		Runner:       tool.NewRunner(registry),
		Model:        "qwen/qwen-2.5-72b-instruct",
		SystemPrompt: "You are a business assistant.",
		MaxRounds:    10,
	}
}

func TestLoopRun_FinalAnswerWithoutTools(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{
		{Content: "The company has 290 employees."},
	}}
	loop := newLoop(provider)

	answer, trace, err := loop.Run(context.Background(), nil, "How many employees?")
	require.NoError(t, err)
	assert.Equal(t, "The company has 290 employees.", answer)
	assert.Empty(t, trace)

	require.Len(t, provider.requests, 1)
	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, contract.RoleSystem, msgs[0].Role)
	assert.Equal(t, contract.RoleUser, msgs[1].Role)
}

func TestLoopRun_ToolRoundTrip(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{{ID: "call_1", Name: "lookup", Input: `{"q":"employees"}`}}},
		{Content: "290 employees."},
	}}
	loop := newLoop(provider, &echoTool{name: "lookup"})

	answer, trace, err := loop.Run(context.Background(), nil, "How many employees?")
	require.NoError(t, err)
	assert.Equal(t, "290 employees.", answer)

	require.Len(t, trace, 1)
	assert.Equal(t, "lookup", trace[0].ToolName)
	require.NotNil(t, trace[0].Output)
	assert.Equal(t, `observed:{"q":"employees"}`, *trace[0].Output)

	// Second request carries the assistant tool call and the tool observation.
	require.Len(t, provider.requests, 2)
	msgs := provider.requests[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, contract.RoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, contract.RoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, `observed:{"q":"employees"}`, msgs[3].Content)
}

func TestLoopRun_UnknownToolContinues(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{{ID: "call_1", Name: "no_such_tool", Input: `{}`}}},
		{Content: "Recovered."},
	}}
	loop := newLoop(provider)

	answer, trace, err := loop.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", answer)

	require.Len(t, trace, 1)
	require.NotNil(t, trace[0].Error)
	assert.Contains(t, *trace[0].Error, "unknown tool")

	msgs := provider.requests[1].Messages
	assert.Contains(t, msgs[3].Content, "unknown tool")
}

func TestLoopRun_SequentialToolOrder(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{
			{ID: "call_1", Name: "first", Input: `{"n":1}`},
			{ID: "call_2", Name: "second", Input: `{"n":2}`},
		}},
		{Content: "done"},
	}}
	loop := newLoop(provider, &echoTool{name: "first"}, &echoTool{name: "second"})

	_, trace, err := loop.Run(context.Background(), nil, "go")
	require.NoError(t, err)

	require.Len(t, trace, 2)
	assert.Equal(t, "first", trace[0].ToolName)
	assert.Equal(t, "second", trace[1].ToolName)
}

func TestLoopRun_MaxRoundsCap(t *testing.T) {
	// Always asks for another tool call; loop must stop at the cap.
	provider := &scriptedProvider{}
	for i := 0; i < 20; i++ {
		provider.responses = append(provider.responses, &contract.CompletionResponse{
			ToolCalls: []*contract.ToolCall{{ID: "call", Name: "lookup", Input: `{}`}},
		})
	}
	loop := newLoop(provider, &echoTool{name: "lookup"})
	loop.MaxRounds = 3

	answer, trace, err := loop.Run(context.Background(), nil, "loop forever")
	require.NoError(t, err, "hitting the cap is not an error")
	assert.Contains(t, answer, "could not complete")
	assert.Len(t, trace, 3)
	assert.Len(t, provider.requests, 3)
}

func TestLoopRun_ProviderErrorSurfaces(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("upstream 502")}
	loop := newLoop(provider)

	_, _, err := loop.Run(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model request failed")
}

func TestLoopRun_EmptyAnswerGetsFallback(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{{Content: ""}}}
	loop := newLoop(provider)

	answer, _, err := loop.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, fallbackAnswer, answer)
}

func TestLoopRun_HistoryPrecedesUserMessage(t *testing.T) {
	provider := &scriptedProvider{responses: []*contract.CompletionResponse{{Content: "ok"}}}
	loop := newLoop(provider)

	history := []contract.Message{
		{Role: contract.RoleUser, Content: "earlier question"},
		{Role: contract.RoleAssistant, Content: "earlier answer"},
	}
	_, _, err := loop.Run(context.Background(), history, "follow-up")
	require.NoError(t, err)

	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, "earlier answer", msgs[2].Content)
	assert.Equal(t, "follow-up", msgs[3].Content)
}

func TestLoopRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{}
	loop := newLoop(provider)

	_, _, err := loop.Run(ctx, nil, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.requests)
}
