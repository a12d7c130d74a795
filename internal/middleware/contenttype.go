package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires a JSON body on body-carrying methods. The image
// analysis endpoint also takes multipart uploads, so that type is admitted
// as well; everything else speaks JSON, photos included (base64 in the
// body).
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			if contentType == "" {
				http.Error(w, "Content-Type header is required", http.StatusBadRequest)
				return
			}
			// Accept parameter suffixes like "; charset=utf-8" and
			// "; boundary=...".
			if !strings.HasPrefix(contentType, "application/json") &&
				!strings.HasPrefix(contentType, "multipart/form-data") {
				http.Error(w, "Content-Type must be application/json or multipart/form-data", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
