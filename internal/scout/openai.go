package scout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// ErrAPIKeyNotSet is returned when the OpenAI provider has no key
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// OpenAIConfig configures the OpenAI generator
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// OpenAI generates reports with the chat completions API. The SDK's own retries are
// disabled; the job retry policy decides.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAI creates an OpenAI generator
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

var _ Generator = (*OpenAI)(nil)

func (g *OpenAI) Generate(ctx context.Context, p Profile) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(p)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyReport)
	}

	report := strings.TrimSpace(completion.Choices[0].Message.Content)
	if report == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyReport)
	}
	return report, nil
}

// classifyOpenAIError marks client errors other than timeouts and rate limits as permanent
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
		return jobs.Permanent(fmt.Errorf("openai API call failed: %w", err))
	}
	return fmt.Errorf("openai API call failed: %w", err)
}

func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
