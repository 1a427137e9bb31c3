package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestConversationSeed(t *testing.T) {
	conv := NewConversation("you are helpful", "hello")

	messages := conv.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 seed messages, got %d", len(messages))
	}
	if messages[0].Role != openai.ChatMessageRoleSystem || messages[1].Role != openai.ChatMessageRoleUser {
		t.Fatalf("unexpected seed roles: %s, %s", messages[0].Role, messages[1].Role)
	}
	if !conv.AtTurnBoundary() {
		t.Fatal("fresh conversation must be at a turn boundary")
	}
}

func TestContinueMidRoundFails(t *testing.T) {
	conv := NewConversation("sys", "user")
	conv.appendMessage(openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{ID: "call_1", Type: openai.ToolTypeFunction},
			{ID: "call_2", Type: openai.ToolTypeFunction},
		},
	})

	lenBefore := conv.Len()
	err := conv.continueWith("next message")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if conv.Len() != lenBefore {
		t.Fatal("failed continue must not mutate the conversation")
	}

	// Resolving one of two calls is still mid-round.
	conv.appendToolMessage(openai.ToolCall{ID: "call_1"}, `{"status":"success"}`)
	if err := conv.continueWith("next"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState with partial resolution, got %v", err)
	}

	// Resolving both returns the conversation to a turn boundary.
	conv.appendToolMessage(openai.ToolCall{ID: "call_2"}, `{"status":"success"}`)
	conv.appendMessage(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: "done",
	})
	if err := conv.continueWith("next"); err != nil {
		t.Fatalf("expected continue to succeed, got %v", err)
	}
}

func TestConversationJSONRoundTrip(t *testing.T) {
	conv := NewConversation("sys", "analyze this")
	conv.appendMessage(openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: "done",
	})

	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := &Conversation{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Len() != conv.Len() {
		t.Fatalf("restored %d messages, want %d", restored.Len(), conv.Len())
	}
	if restored.Messages()[2].Content != "done" {
		t.Fatal("message content lost in round trip")
	}
}
