package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/agent/tools"
	"geoagent/internal/config"
)

// scriptedClient replays a fixed sequence of model responses and records
// every request it receives.
type scriptedClient struct {
	script   []func() (openai.ChatCompletionResponse, error)
	requests []openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	if len(c.requests) > len(c.script) {
		return openai.ChatCompletionResponse{}, fmt.Errorf("unexpected request #%d", len(c.requests))
	}
	return c.script[len(c.requests)-1]()
}

func textResponse(content string) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				},
			}},
		}, nil
	}
}

func toolCallResponse(calls ...openai.ToolCall) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:      openai.ChatMessageRoleAssistant,
					ToolCalls: calls,
				},
			}},
		}, nil
	}
}

func transportError(err error) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, err
	}
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:   id,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

// recordingTool logs its invocations and returns a canned payload.
type recordingTool struct {
	tools.BaseTool
	payload string
	calls   []string
}

func (t *recordingTool) Execute(args string) (string, error) {
	t.calls = append(t.calls, args)
	return t.payload, nil
}

func newRecordingTool(name string, required []string, payload string) *recordingTool {
	return &recordingTool{
		BaseTool: tools.BaseTool{
			ToolName:        name,
			ToolDescription: "test tool",
			ToolParameters: jsonschema.Definition{
				Type:     jsonschema.Object,
				Required: required,
			},
		},
		payload: payload,
	}
}

func newTestAgent(t *testing.T, client ChatCompleter, toolSet ...tools.Tool) *Agent {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range toolSet {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return New(client, registry, config.DefaultConfig())
}

func TestIsFollowUp(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"分成几类？", true},
		{"How many clusters?", true},
		{"已完成聚类，结果见附件。", false},
		{"Done. Files are attached.", false},
	}

	for _, tt := range tests {
		if got := IsFollowUp(tt.answer); got != tt.want {
			t.Errorf("IsFollowUp(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestTurnWithToolCallAndFinalAnswer(t *testing.T) {
	cluster := newRecordingTool("kmeans_cluster", []string{"input_filepath"},
		`{"status":"success","output_filepath":"clusters.shp","generated_files":["clusters.shp","clusters.dbf"]}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(toolCall("call_1", "kmeans_cluster", `{"input_filepath":"points.csv","n_clusters":5}`)),
		textResponse("Clustering finished. The result is in clusters.shp."),
	}}

	a := newTestAgent(t, client, cluster)
	result, err := a.StartTurn(context.Background(), "cluster my points into 5 groups")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if result.RequiresFollowUp {
		t.Fatal("final answer misclassified as follow-up")
	}
	if len(cluster.calls) != 1 {
		t.Fatalf("expected 1 tool invocation, got %d", len(cluster.calls))
	}

	want := []string{"clusters.shp", "clusters.dbf"}
	if len(result.GeneratedFiles) != len(want) {
		t.Fatalf("generated files = %v, want %v", result.GeneratedFiles, want)
	}
	for i := range want {
		if result.GeneratedFiles[i] != want[i] {
			t.Fatalf("generated files = %v, want %v", result.GeneratedFiles, want)
		}
	}

	// The tool declarations and tool_choice ride on every request.
	for i, req := range client.requests {
		if len(req.Tools) != 1 || req.ToolChoice != "auto" {
			t.Fatalf("request %d missing tool declarations", i)
		}
	}
}

func TestTurnFollowUpWithoutToolCalls(t *testing.T) {
	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		textResponse("How many clusters would you like?"),
	}}
	cluster := newRecordingTool("kmeans_cluster", nil, `{"status":"success"}`)

	a := newTestAgent(t, client, cluster)
	result, err := a.StartTurn(context.Background(), "cluster my points")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if !result.RequiresFollowUp {
		t.Fatal("question not classified as follow-up")
	}
	if len(cluster.calls) != 0 {
		t.Fatal("no tool should run")
	}
	if len(result.GeneratedFiles) != 0 {
		t.Fatalf("expected no generated files, got %v", result.GeneratedFiles)
	}
	if !result.Conversation.AtTurnBoundary() {
		t.Fatal("conversation must be ready for the next user turn")
	}
}

func TestRoundTripToolMessages(t *testing.T) {
	alpha := newRecordingTool("alpha", nil, `{"status":"success"}`)
	beta := newRecordingTool("beta", nil, `{"status":"success"}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(
			toolCall("call_a", "alpha", `{}`),
			toolCall("call_b", "beta", `{}`),
			toolCall("call_c", "alpha", `{}`),
		),
		textResponse("done."),
	}}

	a := newTestAgent(t, client, alpha, beta)
	result, err := a.StartTurn(context.Background(), "run everything")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	// The second request must carry one tool message per call, in emission
	// order, with matching IDs.
	messages := client.requests[1].Messages
	var toolMsgs []openai.ChatCompletionMessage
	for _, msg := range messages {
		if msg.Role == openai.ChatMessageRoleTool {
			toolMsgs = append(toolMsgs, msg)
		}
	}

	wantIDs := []string{"call_a", "call_b", "call_c"}
	if len(toolMsgs) != len(wantIDs) {
		t.Fatalf("expected %d tool messages, got %d", len(wantIDs), len(toolMsgs))
	}
	for i, id := range wantIDs {
		if toolMsgs[i].ToolCallID != id {
			t.Fatalf("tool message %d answers %s, want %s", i, toolMsgs[i].ToolCallID, id)
		}
	}

	if !result.Conversation.AtTurnBoundary() {
		t.Fatal("all tool calls must be resolved")
	}
}

func TestArgumentErrorShortCircuitsBatch(t *testing.T) {
	first := newRecordingTool("first", nil, `{"status":"success"}`)
	second := newRecordingTool("second", []string{"filepath"}, `{"status":"success"}`)
	third := newRecordingTool("third", nil, `{"status":"success"}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(
			toolCall("call_1", "first", `{}`),
			toolCall("call_2", "second", `{"wrong":"field"}`), // missing required filepath
			toolCall("call_3", "third", `{}`),
		),
		textResponse("recovered."),
	}}

	a := newTestAgent(t, client, first, second, third)
	if _, err := a.StartTurn(context.Background(), "go"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if len(first.calls) != 1 {
		t.Fatal("first call should have run")
	}
	if len(second.calls) != 0 {
		t.Fatal("second call must not reach the tool on argument error")
	}
	if len(third.calls) != 0 {
		t.Fatal("third call must not run after an argument error")
	}

	// Exactly K tool messages for a batch aborted at the K-th call.
	var toolMsgs int
	for _, msg := range client.requests[1].Messages {
		if msg.Role == openai.ChatMessageRoleTool {
			toolMsgs++
		}
	}
	if toolMsgs != 2 {
		t.Fatalf("expected 2 tool messages (success + argument error), got %d", toolMsgs)
	}
}

func TestExecutionFailureDoesNotAbortBatch(t *testing.T) {
	failing := newRecordingTool("failing", nil, `{"status":"error","message":"no such column"}`)
	after := newRecordingTool("after", nil, `{"status":"success"}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(
			toolCall("call_1", "failing", `{}`),
			toolCall("call_2", "after", `{}`),
		),
		textResponse("handled."),
	}}

	a := newTestAgent(t, client, failing, after)
	if _, err := a.StartTurn(context.Background(), "go"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if len(after.calls) != 1 {
		t.Fatal("execution failure must not abort the rest of the batch")
	}
}

func TestUnknownToolReportedToModel(t *testing.T) {
	known := newRecordingTool("known", nil, `{"status":"success"}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(
			toolCall("call_1", "made_up_tool", `{}`),
			toolCall("call_2", "known", `{}`),
		),
		textResponse("sorry about that."),
	}}

	a := newTestAgent(t, client, known)
	result, err := a.StartTurn(context.Background(), "go")
	if err != nil {
		t.Fatalf("unknown tool must not fail the turn: %v", err)
	}
	if result.Answer != "sorry about that." {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if len(known.calls) != 1 {
		t.Fatal("remaining calls must still run after an unknown tool")
	}
}

func TestGeneratedFilesDeduplicated(t *testing.T) {
	producer := newRecordingTool("producer", nil,
		`{"status":"success","output_image_path":"map.png"}`)

	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		toolCallResponse(toolCall("call_1", "producer", `{}`)),
		toolCallResponse(toolCall("call_2", "producer", `{}`)),
		textResponse("both rendered."),
	}}

	a := newTestAgent(t, client, producer)
	result, err := a.StartTurn(context.Background(), "go")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if len(result.GeneratedFiles) != 1 || result.GeneratedFiles[0] != "map.png" {
		t.Fatalf("expected deduplicated [map.png], got %v", result.GeneratedFiles)
	}
}

func TestTransportErrorFatalToTurn(t *testing.T) {
	boom := errors.New("connection reset")
	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		transportError(boom),
	}}

	a := newTestAgent(t, client)
	_, err := a.StartTurn(context.Background(), "hello")
	if err == nil {
		t.Fatal("transport error must propagate")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestTransportErrorPreservesConversation(t *testing.T) {
	tool := newRecordingTool("tool", nil, `{"status":"success"}`)
	client := &scriptedClient{script: []func() (openai.ChatCompletionResponse, error){
		textResponse("What file should I use?"),
		transportError(errors.New("gateway timeout")),
	}}

	a := newTestAgent(t, client, tool)
	first, err := a.StartTurn(context.Background(), "analyze my data")
	if err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	conv := first.Conversation
	lenBefore := conv.Len()

	if _, err := a.ContinueTurn(context.Background(), conv, "use data.xlsx"); err == nil {
		t.Fatal("expected transport error")
	}

	// The user message was appended before the failure; everything up to
	// the last successful append is preserved for a retry.
	if conv.Len() != lenBefore+1 {
		t.Fatalf("conversation length = %d, want %d", conv.Len(), lenBefore+1)
	}
	if !conv.AtTurnBoundary() {
		t.Fatal("conversation must remain continuable after a transport error")
	}
}

func TestMaxRoundsFallback(t *testing.T) {
	looper := newRecordingTool("looper", nil, `{"status":"success"}`)

	var script []func() (openai.ChatCompletionResponse, error)
	for i := 0; i < 20; i++ {
		call := toolCall(fmt.Sprintf("call_%d", i), "looper", `{}`)
		script = append(script, toolCallResponse(call))
	}

	client := &scriptedClient{script: script}
	a := newTestAgent(t, client, looper)
	a.maxRounds = 3

	result, err := a.StartTurn(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.Answer == "" {
		t.Fatal("expected a fallback answer at the round cap")
	}
	if len(client.requests) != 3 {
		t.Fatalf("expected 3 model requests, got %d", len(client.requests))
	}
}
