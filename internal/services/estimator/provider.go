// Package estimator wraps the external analysis oracle: an
// OpenAI-compatible vision-language model that, given a meal photo or a
// food description, answers with free text expected to contain a calorie
// figure. The Service layer memoizes responses, converts transport
// failures into fixed user-facing fallback texts, and parses the calorie
// number back out of the reply.
package estimator

import "context"

// Provider is the transport contract with the oracle. A returned error
// always means the call produced nothing usable (timeout, connection
// failure, upstream rejection); there is no partial success.
type Provider interface {
	// AnalyzeImage submits prepared JPEG bytes and returns the raw model text.
	AnalyzeImage(ctx context.Context, image []byte) (string, error)

	// AnalyzeText submits a food description and returns the raw model text.
	AnalyzeText(ctx context.Context, description string) (string, error)
}
