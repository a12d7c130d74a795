package estimator

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/config"
	logpkg "github.com/dkotenko/calobot/internal/logger"
)

// The model is told to answer with a bare number; it rarely obeys to the
// letter, which is why the service extracts the first digit run instead of
// parsing the whole reply.
const (
	imageAnalysisPrompt      = "Проанализируй это изображение еды и определи примерное количество калорий. Ответь только числом калорий, без дополнительного текста."
	textAnalysisPromptFormat = "Проанализируй это описание еды и определи примерное количество калорий: '%s'. Ответь только числом калорий, без дополнительного текста."

	maxCompletionTokens   = 50
	completionTemperature = 0.1
)

// NebiusProvider talks to an OpenAI-compatible chat-completions endpoint,
// Nebius AI Studio by default, carrying a vision-language model.
type NebiusProvider struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

var _ Provider = (*NebiusProvider)(nil)

// NewNebiusProvider builds the oracle client. The request timeout lives on
// the HTTP client so a stalled upstream cannot hang a session, and retries
// are disabled: a failed call is reported to the user, who retries.
func NewNebiusProvider(cfg *config.Config, logger *zap.Logger) *NebiusProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	model := cfg.NebiusModel
	if model == "" {
		model = config.DefaultNebiusModel
	}
	baseURL := cfg.NebiusBaseURL
	if baseURL == "" {
		baseURL = config.DefaultNebiusBaseURL
	}
	timeout := cfg.EstimatorTimeout
	if timeout <= 0 {
		timeout = config.DefaultEstimatorTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.NebiusAPIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &NebiusProvider{
		client: client,
		model:  model,
		logger: logger,
	}
}

// AnalyzeImage sends the image as a base64 JPEG data URL in a vision
// message part alongside the analysis prompt.
func (p *NebiusProvider) AnalyzeImage(ctx context.Context, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(imageAnalysisPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + encoded,
		}),
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(parts),
	}

	content, err := p.complete(ctx, "analyze_image", messages)
	if err != nil {
		return "", fmt.Errorf("failed to analyze image: %w", err)
	}
	return content, nil
}

// AnalyzeText sends a plain-text analysis prompt wrapping the description.
func (p *NebiusProvider) AnalyzeText(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(textAnalysisPromptFormat, description)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "analyze_text", messages)
	if err != nil {
		return "", fmt.Errorf("failed to analyze text: %w", err)
	}
	return content, nil
}

func (p *NebiusProvider) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		MaxTokens:   openai.Int(maxCompletionTokens),
		Temperature: openai.Float(completionTemperature),
	}

	p.logger.Debug("llm_api_request",
		zap.String("operation", operation),
		zap.String("model", p.model),
		zap.Int("message_count", len(messages)),
	)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		p.logger.Debug("llm_api_error",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Error(err),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	p.logger.Debug("llm_api_response",
		zap.String("operation", operation),
		zap.String("model", p.model),
		zap.Int("response_length", len(content)),
		zap.String("response_preview", logpkg.SanitizeOracleResponse(content)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)

	return content, nil
}
