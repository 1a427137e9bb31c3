// Package agent implements the tool-calling conversation loop: it drives
// repeated model request / tool execution rounds until the model produces a
// plain-text response, then classifies that response as a final answer or a
// follow-up question.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"geoagent/internal/agent/tools"
	"geoagent/internal/config"
	"geoagent/internal/logger"
)

// Agent owns one model client and one tool registry and runs conversation
// turns against them. It keeps no per-conversation state; the caller holds
// the Conversation between turns.
type Agent struct {
	client       ChatCompleter
	registry     *tools.Registry
	executor     *tools.Executor
	systemPrompt string

	model       string
	temperature float32
	maxTokens   int
	maxRounds   int
}

// TurnResult is what one completed turn hands back to the caller.
type TurnResult struct {
	Answer           string
	RequiresFollowUp bool
	GeneratedFiles   []string
	Conversation     *Conversation
}

// New wires an agent from its collaborators and config.
func New(client ChatCompleter, registry *tools.Registry, cfg *config.Config) *Agent {
	return &Agent{
		client:       client,
		registry:     registry,
		executor:     tools.NewExecutor(registry),
		systemPrompt: DefaultSystemPrompt,
		model:        cfg.Model.Name,
		temperature:  cfg.Model.Temperature,
		maxTokens:    cfg.Model.MaxTokens,
		maxRounds:    cfg.Model.MaxRounds,
	}
}

// StartTurn begins a new conversation with the given user message and runs
// it to a terminal response.
func (a *Agent) StartTurn(ctx context.Context, userMessage string) (*TurnResult, error) {
	logger.Infof("Starting new conversation")
	conv := NewConversation(a.systemPrompt, userMessage)
	return a.runTurn(ctx, conv)
}

// ContinueTurn appends the next user message to an existing conversation
// and runs the turn. Returns ErrInvalidState if the conversation is not at
// a turn boundary; the conversation is left untouched in that case.
func (a *Agent) ContinueTurn(ctx context.Context, conv *Conversation, userMessage string) (*TurnResult, error) {
	if err := conv.continueWith(userMessage); err != nil {
		return nil, err
	}
	logger.Infof("Continuing conversation (%d messages)", conv.Len())
	return a.runTurn(ctx, conv)
}

// runTurn is the round loop. Each round sends the full conversation plus
// the tool declarations, then either resolves the requested tool calls and
// goes again, or terminates on a plain-text response. Tool failures never
// end the turn; only transport errors do, and those leave the conversation
// intact up to the last successful append so the caller may retry.
func (a *Agent) runTurn(ctx context.Context, conv *Conversation) (*TurnResult, error) {
	files := newFileSet()
	declared := a.registry.OpenAITools()

	for round := 0; ; round++ {
		if a.maxRounds > 0 && round >= a.maxRounds {
			logger.Warnf("Reached maximum tool rounds (%d), forcing a terminal answer", a.maxRounds)
			answer := fallbackAnswer(conv)
			conv.appendMessage(openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: answer,
			})
			return a.terminal(answer, files, conv), nil
		}

		resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(conv, declared))
		if err != nil {
			return nil, fmt.Errorf("model request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("model returned no choices")
		}

		msg := resp.Choices[0].Message
		conv.appendMessage(msg)

		if len(msg.ToolCalls) == 0 {
			return a.terminal(msg.Content, files, conv), nil
		}

		logger.AgentDebugf("Model requested %d tool call(s) in round %d", len(msg.ToolCalls), round)
		a.resolveToolCalls(conv, msg.ToolCalls, files)
	}
}

// resolveToolCalls executes a batch of tool calls sequentially, in the
// order the model emitted them, appending one role=tool message per call.
// An argument-parse failure short-circuits the remainder of the batch; the
// model sees the partial batch and decides how to recover on its next
// round. Execution failures and unknown tool names do not short-circuit.
func (a *Agent) resolveToolCalls(conv *Conversation, calls []openai.ToolCall, files *fileSet) {
	for _, call := range calls {
		result := a.executor.Execute(call.Function.Name, call.Function.Arguments)
		conv.appendToolMessage(call, result.Content)

		if result.OK {
			harvestFiles(result.Content, files)
		}

		if result.Kind == tools.KindArgumentError {
			logger.Warnf("Aborting remaining tool calls in this batch after argument error in %s",
				call.Function.Name)
			return
		}
	}
}

func (a *Agent) terminal(answer string, files *fileSet, conv *Conversation) *TurnResult {
	followUp := IsFollowUp(answer)
	if followUp {
		logger.Infof("Model asked a follow-up question")
	} else {
		logger.Successf("Turn complete (%d generated files)", len(files.order))
	}

	return &TurnResult{
		Answer:           answer,
		RequiresFollowUp: followUp,
		GeneratedFiles:   files.list(),
		Conversation:     conv,
	}
}

func (a *Agent) buildRequest(conv *Conversation, declared []openai.Tool) openai.ChatCompletionRequest {
	request := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    conv.Messages(),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	if len(declared) > 0 {
		request.Tools = declared
		request.ToolChoice = "auto"
	}

	return request
}

// IsFollowUp classifies a terminal response: it is a follow-up question if
// it contains a question mark, ASCII or full-width.
func IsFollowUp(answer string) bool {
	return strings.ContainsRune(answer, '?') || strings.ContainsRune(answer, '？')
}

// fallbackAnswer summarizes which tools ran when the round cap is hit and
// the model never produced a terminal response.
func fallbackAnswer(conv *Conversation) string {
	var toolNames []string
	seen := make(map[string]bool)
	for _, msg := range conv.Messages() {
		if msg.Role == openai.ChatMessageRoleTool && !seen[msg.Name] {
			seen[msg.Name] = true
			toolNames = append(toolNames, msg.Name)
		}
	}

	if len(toolNames) > 0 {
		return "I've completed your request using: " + strings.Join(toolNames, ", ")
	}

	return "I've completed the operations but couldn't generate a final response."
}
