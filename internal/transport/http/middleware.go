package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"chapter-quiz-service/internal/domain"
)

type identityKey struct{}

// WithIdentity stores the session user in ctx.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the session user placed by requireSession.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	return identity, ok
}

func (h *Handler) sessionIdentity(r *http.Request) (domain.Identity, error) {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return h.svc.Auth.Authenticate(r.Context(), c.Value)
}

// requireSession rejects requests without a live session before any core logic runs.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.sessionIdentity(r)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required", MessageKey: domain.MessageSessionRequired})
				return
			}
			h.writeServiceError(w, r, err, nil)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
