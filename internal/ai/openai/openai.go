package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/logger"
	"github.com/spigell/interview-brain/internal/utils"
)

const (
	DefaultModel = "gpt-4o-mini"

	defaultMaxTokens   = 500
	defaultTemperature = 0.2
	defaultMaxRetries  = 3
	baseRetryDelay     = time.Second
	maxRetryDelay      = 8 * time.Second
)

var sleep = utils.WaitFor

type chatCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

// Chat completes prompts with the OpenAI chat API in JSON mode.
type Chat struct {
	client     chatCreator
	model      string
	maxTokens  int
	maxRetries int
	logger     *zap.Logger
}

func New(opts Options, log *zap.Logger) (*Chat, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = base
	}

	return newChat(openai.NewClientWithConfig(cfg), opts, log), nil
}

func newChat(client chatCreator, opts Options, log *zap.Logger) *Chat {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Chat{
		client:     client,
		model:      model,
		maxTokens:  maxTokens,
		maxRetries: retries,
		logger:     logger.WithCommonFields(log, "openai", model),
	}
}

func (c *Chat) Provider() string { return "openai" }

func (c *Chat) Model() string { return c.model }

func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", errors.New("prompt must not be empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: defaultTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return firstChoice(resp)
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxRetries-1 {
			break
		}

		delay := utils.Backoff(attempt, baseRetryDelay, maxRetryDelay)
		c.logger.Warn("openai request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("create chat completion: %w", lastErr)
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errors.New("openai api returned empty response")
}

func retryable(err error) bool {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}

	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
