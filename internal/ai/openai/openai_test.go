package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type fakeChatClient struct {
	requests  []openai.ChatCompletionRequest
	responses []openai.ChatCompletionResponse
	errs      []error
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return openai.ChatCompletionResponse{}, errors.New("unexpected call")
}

func reply(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: text}}},
	}
}

func TestChatComplete(t *testing.T) {
	client := &fakeChatClient{responses: []openai.ChatCompletionResponse{reply(` {"question":"q"} `)}}
	chat := newChat(client, Options{}, zap.NewNop())

	out, err := chat.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"question":"q"}` {
		t.Fatalf("unexpected output: %q", out)
	}

	req := client.requests[0]
	if req.Model != DefaultModel || req.MaxTokens != 500 || req.Temperature != 0.2 {
		t.Fatalf("unexpected request settings: %+v", req)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json object response format")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[1].Content != "user prompt" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if chat.Provider() != "openai" || chat.Model() != DefaultModel {
		t.Fatalf("unexpected identity: %s/%s", chat.Provider(), chat.Model())
	}
}

func TestChatRetriesRateLimit(t *testing.T) {
	prevSleep := sleep
	var slept []time.Duration
	sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	defer func() { sleep = prevSleep }()

	client := &fakeChatClient{
		errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, nil},
		responses: []openai.ChatCompletionResponse{{}, reply("{}")},
	}
	chat := newChat(client, Options{MaxRetries: 3}, zap.NewNop())

	if _, err := chat.Complete(context.Background(), "", "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(client.requests))
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("unexpected backoff: %v", slept)
	}
	if len(client.requests[0].Messages) != 1 {
		t.Fatalf("expected no system message, got %+v", client.requests[0].Messages)
	}
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	client := &fakeChatClient{
		errs: []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
	}
	chat := newChat(client, Options{MaxRetries: 3}, zap.NewNop())

	_, err := chat.Complete(context.Background(), "sys", "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected single request, got %d", len(client.requests))
	}
}

func TestChatRejectsEmpty(t *testing.T) {
	chat := newChat(&fakeChatClient{responses: []openai.ChatCompletionResponse{reply("  ")}}, Options{}, zap.NewNop())

	if _, err := chat.Complete(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if _, err := chat.Complete(context.Background(), "sys", "prompt"); err == nil {
		t.Fatal("expected error for empty reply")
	}
}
