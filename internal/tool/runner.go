package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	anforaErrors "github.com/anforahq/anfora/internal/errors"
	"github.com/anforahq/anfora/internal/logger"
	"github.com/anforahq/anfora/internal/model/contract"
)

// Runner executes tools on behalf of the orchestration loop. Failures never
// propagate as errors; they are rendered into the observation string so the
// model can read them and recover on the next round.
type Runner struct {
	registry *Registry
}

func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

func (r *Runner) Descriptors() []contract.ToolDef {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.Descriptors()
}

// Execute handles the full lifecycle: resolve tool, validate input, run,
// record. The returned observation is always non-empty.
func (r *Runner) Execute(ctx context.Context, toolName string, input json.RawMessage) (string, InvocationRecord) {
	start := time.Now()
	record := InvocationRecord{
		ID:        newInvocationID(),
		ToolName:  NormalizeToolName(toolName),
		Input:     string(input),
		Timestamp: start.UTC().Format(time.RFC3339),
	}
	requestID := logger.GetRequestID(ctx)

	finish := func(observation string, cause error) (string, InvocationRecord) {
		record.DurationMS = time.Since(start).Milliseconds()
		if cause != nil {
			record.Error = &observation
			slog.Warn("Tool execution failed", "tool", record.ToolName, "error", observation, "category", anforaErrors.Category(cause), "duration_ms", record.DurationMS, "request_id", requestID)
		} else {
			record.Output = &observation
			slog.Info("Tool execution success", "tool", record.ToolName, "duration_ms", record.DurationMS, "request_id", requestID)
		}
		return observation, record
	}

	t, ok := r.registry.Get(toolName)
	if !ok {
		observation := fmt.Sprintf("Error: unknown tool %q. Available tools: %s", record.ToolName, strings.Join(r.registry.Names(), ", "))
		return finish(observation, anforaErrors.UnknownTool(record.ToolName))
	}

	if err := ValidateInput(t.Parameters(), input); err != nil {
		observation := fmt.Sprintf("Error: invalid input for %s: %v", record.ToolName, err)
		return finish(observation, anforaErrors.InvalidArguments(err.Error()))
	}

	slog.Info("Executing tool", "tool", record.ToolName, "request_id", requestID)

	observation, err := t.Execute(ctx, input)
	if err != nil {
		cause := err
		if anforaErrors.Category(cause) == "Unknown" {
			cause = anforaErrors.MapError(cause)
		}
		return finish(fmt.Sprintf("Error: %v", err), cause)
	}
	return finish(observation, nil)
}
