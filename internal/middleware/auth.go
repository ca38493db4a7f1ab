package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mwalcott/account-portal/internal/models"
	"github.com/mwalcott/account-portal/internal/token"
)

type userContextKey struct{}

// UserFromContext returns the user resolved by RequireAuth, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*models.User)
	return u, ok
}

// UserLookup resolves a token subject to a stored user record.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth gates protected routes on a valid bearer token. The token is
// verified, its subject resolved to a user, and the user attached to the
// request context. An invalid token and an unknown subject produce the same
// response so callers cannot probe for account existence. The guard holds no
// cross-request state and never extends the token.
func RequireAuth(codec *token.Codec, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "Not authorized, no token")
				return
			}

			userID, err := codec.Verify(raw)
			if err != nil {
				unauthorized(w, "Not authorized, token failed")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				// Deleted subject, same response as a bad token.
				unauthorized(w, "Not authorized, token failed")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	t := value[len(bearer):]
	if t == "" {
		return "", false
	}
	return t, true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"` + message + `"}`))
}
