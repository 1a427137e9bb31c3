package tools

import "encoding/json"

// ErrorKind classifies how a tool call failed.
type ErrorKind string

const (
	// KindUnknownTool means the model asked for a name that is not registered.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindArgumentError means the raw arguments were not a valid JSON object
	// or were missing a required field.
	KindArgumentError ErrorKind = "argument_error"
	// KindToolExecutionFailure means the tool itself reported or raised a
	// failure while running.
	KindToolExecutionFailure ErrorKind = "tool_execution_failure"
)

// Result is the uniform envelope the executor produces for every call.
// Content is always a JSON document suitable for a role=tool message, so a
// failure is reported to the model as data rather than aborting the turn.
type Result struct {
	ToolName string
	OK       bool
	Kind     ErrorKind // empty when OK
	Content  string
}

type errorPayload struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorResult(toolName string, kind ErrorKind, message string) Result {
	content, err := json.Marshal(errorPayload{
		Status:  "error",
		Kind:    string(kind),
		Message: message,
	})
	if err != nil {
		// Marshalling a flat struct of strings cannot fail; keep a plain
		// fallback anyway so the envelope contract holds.
		content = []byte(`{"status":"error","message":"internal error"}`)
	}

	return Result{
		ToolName: toolName,
		OK:       false,
		Kind:     kind,
		Content:  string(content),
	}
}
