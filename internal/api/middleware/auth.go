package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/auth"
)

// AdminTokenHeader carries the admin token for graph uploads
const AdminTokenHeader = "X-Admin-Token"

// SessionCookie is accepted in place of a bearer header
const SessionCookie = "session"

type principalKey struct{}

// principal is what Auth attaches to an authenticated request
type principal struct {
	token   string
	session *auth.Session
}

// Auth rejects requests without a live session and attaches the verified
// user to the request context. Handlers behind it treat that user as the
// only trusted identity.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal{token: token, session: session})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin requires the configured admin token. An empty token disables
// every route behind this middleware.
func Admin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteError(w, apierr.NewForbiddenError("admin operations are disabled"))
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				apierr.WriteError(w, apierr.NewForbiddenError("invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// GetUser returns the authenticated user, or nil outside Auth
func GetUser(ctx context.Context) *model.User {
	p, ok := principalFrom(ctx)
	if !ok {
		return nil
	}
	return &p.session.User
}

// SessionToken returns the bearer token the request authenticated with
func SessionToken(ctx context.Context) string {
	p, _ := principalFrom(ctx)
	return p.token
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	user := GetUser(ctx)
	if user == nil {
		panic("no user in context - auth middleware not applied?")
	}
	return user
}
