package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/logging"
	"github.com/resumehub/apiserver/internal/store"
	"github.com/resumehub/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

var errMissingToken = errors.New("missing token")

// TokenVerifier validates an access token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup resolves a token subject to a user.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// Authenticator resolves the caller from the access token cookie.
type Authenticator struct {
	tokens     TokenVerifier
	users      UserLookup
	cookieName string
}

func NewAuthenticator(tokens TokenVerifier, users UserLookup, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, cookieName: cookieName}
}

// RequireAuth rejects the request with 401 unless the cookie carries a valid
// token whose subject is a registered user. The user is stored in the
// request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		subject, err := a.tokenSubject(r)
		if err != nil {
			reason := "invalid token"
			if errors.Is(err, errMissingToken) {
				reason = "missing token"
			}
			log.Warn("auth rejected", slog.String("reason", reason), slog.Any("error", err))
			writeError(w, http.StatusUnauthorized, reason)
			return
		}

		user, err := a.users.GetByEmail(r.Context(), subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("auth rejected", slog.String("reason", "user not found"))
				writeError(w, http.StatusUnauthorized, "user not found")
				return
			}
			writeServiceError(w, r, err, "load user")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tokenSubject extracts and verifies the access token carried by r.
func (a *Authenticator) tokenSubject(r *http.Request) (string, error) {
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return "", errMissingToken
	}
	subject, err := a.tokens.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return subject, nil
}

func currentUser(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// userFromRequest returns the authenticated user, writing 401 when the route
// was mounted without RequireAuth.
func userFromRequest(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing token")
	}
	return user, ok
}
