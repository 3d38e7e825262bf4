package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const callerIDKey contextKey = "callerID"

// CallerID extracts the authenticated user from the X-User-ID header the
// gateway injects. Requests without a valid UUID are rejected before they
// reach a handler.
func CallerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid X-User-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), callerIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerID returns the authenticated user set by the CallerID middleware.
func callerID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(callerIDKey).(uuid.UUID)
	return id
}
