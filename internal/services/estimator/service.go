package estimator

import (
	"context"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/cache"
	"github.com/dkotenko/calobot/internal/config"
	logpkg "github.com/dkotenko/calobot/internal/logger"
	"github.com/dkotenko/calobot/internal/nutrition"
)

// estimatePrefix frames every successful oracle reply; the calorie number
// is parsed back out of the framed text.
const estimatePrefix = "Примерное количество калорий: "

// Analysis is the outcome of one estimate request. Text is always safe to
// render to the user. A meal record should be written only when Parsed is
// true and Fallback is false.
type Analysis struct {
	Text     string `json:"text"`
	Calories int    `json:"calories"`
	Parsed   bool   `json:"parsed"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
}

// Service memoizes oracle calls by content fingerprint and converts
// failures into fixed user-facing fallback texts. Fallbacks are never
// inserted into the cache, so a retry after a transient failure reaches
// the oracle again instead of replaying the error.
type Service struct {
	provider     Provider
	cache        *cache.ResponseCache
	logger       *zap.Logger
	maxDimension int
	jpegQuality  int
}

// NewService wires the oracle provider to the response cache.
func NewService(provider Provider, responseCache *cache.ResponseCache, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxDimension := cfg.ImageMaxDimension
	if maxDimension <= 0 {
		maxDimension = config.DefaultImageMaxDimension
	}
	quality := cfg.ImageJPEGQuality
	if quality <= 0 {
		quality = config.DefaultImageJPEGQuality
	}

	return &Service{
		provider:     provider,
		cache:        responseCache,
		logger:       logger,
		maxDimension: maxDimension,
		jpegQuality:  quality,
	}
}

// AnalyzeImage estimates calories for a photographed meal. The fingerprint
// covers the raw uploaded bytes; downscaling applies only to the payload
// actually sent upstream.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte) Analysis {
	key := cache.ImageFingerprint(image)
	if text, ok := s.cache.Get(key); ok {
		return fromText(text, true)
	}

	payload, err := PrepareImage(image, s.maxDimension, s.jpegQuality)
	if err != nil {
		s.logger.Error("image_preparation_failed", zap.Error(err))
		return Analysis{Text: fallbackImageGeneric, Fallback: true}
	}

	raw, err := s.provider.AnalyzeImage(ctx, payload)
	if err != nil {
		// Oracle errors can quote upstream response bodies; sanitize
		// before they reach the logs.
		s.logger.Error("image_analysis_failed",
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return Analysis{Text: imageFallback(err), Fallback: true}
	}

	text := estimatePrefix + raw
	s.cache.Put(key, text)
	return fromText(text, false)
}

// AnalyzeText estimates calories for a described meal, typed or
// voice-transcribed. Fingerprinting is case-insensitive, so retyping the
// same dish in different capitalization hits the cache.
func (s *Service) AnalyzeText(ctx context.Context, description string) Analysis {
	key := cache.TextFingerprint(description)
	if text, ok := s.cache.Get(key); ok {
		return fromText(text, true)
	}

	raw, err := s.provider.AnalyzeText(ctx, description)
	if err != nil {
		s.logger.Error("text_analysis_failed",
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return Analysis{Text: textFallback(err), Fallback: true}
	}

	text := estimatePrefix + raw
	s.cache.Put(key, text)
	return fromText(text, false)
}

// fromText rebuilds an Analysis from estimate text, fresh or cached. A
// reply without any digit run is kept visible but marked unparsed, so no
// record is written for it.
func fromText(text string, cached bool) Analysis {
	calories, parsed := nutrition.ExtractCalories(text)
	return Analysis{
		Text:     text,
		Calories: calories,
		Parsed:   parsed,
		Cached:   cached,
	}
}
