package estimator

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/openai/openai-go/v3"
)

// errNoChoices means the upstream accepted the request yet returned no
// completion choices to read.
var errNoChoices = errors.New("no choices in response")

// Fallback texts shown to the user when an oracle call fails. Each failure
// class keeps its own message so the text itself tells the user whether a
// retry is worth it. Fallbacks are never cached.
const (
	fallbackTimeout      = "Превышено время ожидания ответа от сервера. Попробуйте еще раз."
	fallbackConnection   = "Ошибка соединения с сервером. Попробуйте еще раз."
	fallbackBadResponse  = "Извините, не удалось получить корректный ответ от API. Попробуйте еще раз."
	fallbackImageAPI     = "Извините, не удалось проанализировать изображение. Попробуйте еще раз."
	fallbackTextAPI      = "Извините, не удалось проанализировать описание. Попробуйте еще раз."
	fallbackImageGeneric = "Произошла ошибка при анализе изображения. Попробуйте еще раз."
	fallbackTextGeneric  = "Произошла ошибка при анализе описания. Попробуйте еще раз."
)

type failureClass int

const (
	failureGeneric failureClass = iota
	failureTimeout
	failureConnection
	failureBadResponse
	failureAPI
)

// imageFallback maps a failed image analysis to its user-facing text.
func imageFallback(err error) string {
	switch classifyFailure(err) {
	case failureTimeout:
		return fallbackTimeout
	case failureConnection:
		return fallbackConnection
	case failureBadResponse:
		return fallbackBadResponse
	case failureAPI:
		return fallbackImageAPI
	default:
		return fallbackImageGeneric
	}
}

// textFallback maps a failed text analysis to its user-facing text.
func textFallback(err error) string {
	switch classifyFailure(err) {
	case failureTimeout:
		return fallbackTimeout
	case failureConnection:
		return fallbackConnection
	case failureBadResponse:
		return fallbackBadResponse
	case failureAPI:
		return fallbackTextAPI
	default:
		return fallbackTextGeneric
	}
}

// classifyFailure buckets a provider error. Timeouts are checked before
// the connection bucket because url.Error timeouts also satisfy net.Error.
func classifyFailure(err error) failureClass {
	if err == nil {
		return failureGeneric
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}

	if errors.Is(err, errNoChoices) {
		return failureBadResponse
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return failureAPI
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return failureConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return failureConnection
	}

	return failureGeneric
}
