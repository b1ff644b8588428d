package errors

import (
	"errors"
)

// Sentinel errors for the failure categories the agent distinguishes.
// Tool-level failures are converted to observations at the tool boundary;
// only a model-provider failure surfaces to the HTTP caller.
var (
	// ErrUnknownTool - the model asked for a tool name that is not registered
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments - tool arguments do not satisfy the tool's schema
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrUpstreamAPI - a remote collaborator (database, mail API, model provider) failed
	ErrUpstreamAPI = errors.New("upstream api failure")

	// ErrAuthRequired - no valid or refreshable credential for the mail API
	ErrAuthRequired = errors.New("authentication required")

	// ErrClassification - classifier load or inference failed
	ErrClassification = errors.New("classification failed")

	// ErrInvalidInput - malformed request from the caller (bad role, empty message)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal - anything that escaped the categories above
	ErrInternal = errors.New("internal error")
)
