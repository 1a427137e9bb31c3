package tools

import (
	"encoding/json"
	"fmt"

	"geoagent/internal/logger"
)

// Executor dispatches a named tool call and normalizes the outcome into a
// Result. It is stateless and never lets a failure escape: unknown names,
// malformed arguments, tool errors and even panics all come back as error
// envelopes the conversation loop can report to the model.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up the tool, validates the raw arguments against its
// declared schema, and invokes it.
func (e *Executor) Execute(name string, rawArgs string) Result {
	tool, ok := e.registry.Get(name)
	if !ok {
		logger.Warnf("Model requested unknown tool: %s", name)
		return errorResult(name, KindUnknownTool,
			fmt.Sprintf("unknown tool %q; available tools: %v", name, e.registry.Names()))
	}

	if err := validateArguments(tool, rawArgs); err != nil {
		logger.Warnf("Bad arguments for tool %s: %v", name, err)
		return errorResult(name, KindArgumentError,
			fmt.Sprintf("invalid arguments for %s: %v. Please check your arguments.", name, err))
	}

	logger.AgentDebugf("Executing tool: %s with args: %s", name, rawArgs)
	content, err := invoke(tool, rawArgs)
	if err != nil {
		logger.Errorf("Tool execution error: %s: %v", name, err)
		return errorResult(name, KindToolExecutionFailure,
			fmt.Sprintf("error calling %s: %v", name, err))
	}

	result := Result{
		ToolName: name,
		OK:       true,
		Content:  content,
	}

	// Tools catch their own domain errors and report them in the payload.
	// Surface that as a failed envelope so callers can tell, while keeping
	// the tool's message intact for the model.
	var status struct {
		Status string `json:"status"`
	}
	if jsonErr := json.Unmarshal([]byte(content), &status); jsonErr == nil && status.Status == "error" {
		result.OK = false
		result.Kind = KindToolExecutionFailure
	}

	return result
}

// invoke runs the tool with a panic guard so one misbehaving tool cannot
// take down the whole turn.
func invoke(tool Tool, rawArgs string) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()

	return tool.Execute(rawArgs)
}

// validateArguments checks that rawArgs is a JSON object and that every
// field the tool's schema marks required is present.
func validateArguments(tool Tool, rawArgs string) error {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rawArgs), &parsed); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}

	for _, field := range tool.Parameters().Required {
		if _, present := parsed[field]; !present {
			return fmt.Errorf("missing required field %q", field)
		}
	}

	return nil
}
