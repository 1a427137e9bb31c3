package agent

import (
	"encoding/json"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// ErrInvalidState is returned when a caller tries to continue a
// conversation that is not at a turn boundary, i.e. the last assistant
// message still has unanswered tool calls. The loop's own invariants make
// this unreachable; the check guards against corrupted stored state.
var ErrInvalidState = errors.New("conversation is mid-round: unresolved tool calls")

// Conversation is the append-only message log sent to the model on every
// request. It is owned exclusively by one turn at a time; callers must
// serialize turns per conversation (the HTTP layer holds a per-session
// lock for this).
type Conversation struct {
	messages []openai.ChatCompletionMessage
}

// NewConversation seeds a conversation with the system prompt and the
// first user message.
func NewConversation(systemPrompt, firstUserMessage string) *Conversation {
	return &Conversation{
		messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: firstUserMessage},
		},
	}
}

// Messages returns a copy of the message log.
func (c *Conversation) Messages() []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// pendingToolCalls returns the tool-call IDs of the last assistant message
// that have not yet been answered by a role=tool message.
func (c *Conversation) pendingToolCalls() []string {
	pending := make(map[string]bool)
	var order []string

	for _, msg := range c.messages {
		switch msg.Role {
		case openai.ChatMessageRoleAssistant:
			pending = make(map[string]bool)
			order = order[:0]
			for _, call := range msg.ToolCalls {
				pending[call.ID] = true
				order = append(order, call.ID)
			}
		case openai.ChatMessageRoleTool:
			delete(pending, msg.ToolCallID)
		}
	}

	var unresolved []string
	for _, id := range order {
		if pending[id] {
			unresolved = append(unresolved, id)
		}
	}
	return unresolved
}

// AtTurnBoundary reports whether the conversation can accept a new user
// message.
func (c *Conversation) AtTurnBoundary() bool {
	return len(c.pendingToolCalls()) == 0
}

// continueWith appends the next user message, failing with ErrInvalidState
// if the conversation is mid-round. No partial mutation on failure.
func (c *Conversation) continueWith(userMessage string) error {
	if !c.AtTurnBoundary() {
		return ErrInvalidState
	}

	c.messages = append(c.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
	return nil
}

func (c *Conversation) appendMessage(msg openai.ChatCompletionMessage) {
	c.messages = append(c.messages, msg)
}

func (c *Conversation) appendToolMessage(call openai.ToolCall, content string) {
	c.messages = append(c.messages, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		Name:       call.Function.Name,
		ToolCallID: call.ID,
	})
}

// MarshalJSON serializes the message log so a session store can persist it.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.messages)
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.messages)
}
