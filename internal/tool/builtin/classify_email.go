package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anforahq/anfora/internal/classifier"
	toolcore "github.com/anforahq/anfora/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("classify_email_type", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		model := classifier.New(options.Classifier)
		return &ClassifyTool{
			Classify: model.Classify,
		}, nil
	})
}

// ClassifyTool labels email text with the fine-tuned BERT model. Failures
// become a JSON observation with label "unknown" so the loop keeps going
// even when the model files are missing.
type ClassifyTool struct {
	Classify func(text string) (*classifier.Result, error)
}

type classifyInput struct {
	EmailText string `json:"email_text"`
}

type classifyFailure struct {
	Error      string  `json:"error"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (t *ClassifyTool) Name() string { return "classify_email_type" }

func (t *ClassifyTool) Description() string {
	return "Classify email text as inquiry, issue, or suggestion using the trained model."
}

func (t *ClassifyTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"email_text": map[string]interface{}{
				"type":        "string",
				"description": "The email body or subject line to classify",
			},
		},
		"required": []string{"email_text"},
	}
}

func (t *ClassifyTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args classifyInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	result, err := t.Classify(args.EmailText)
	if err != nil {
		failure, _ := json.Marshal(classifyFailure{
			Error:      err.Error(),
			Label:      "unknown",
			Confidence: 0.0,
		})
		return string(failure), nil
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}
