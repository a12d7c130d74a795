package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize bounds request bodies. Base64-encoded meal
	// photos are the largest expected payload; 8 MiB covers a ~6 MB photo
	// after encoding overhead.
	DefaultMaxRequestSize int64 = 8 << 20
)

// MaxRequestSize rejects oversized bodies before handlers read them.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Reject early when the declared length already exceeds the cap.
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			// Enforce the cap for chunked bodies with no declared length.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
