/*
middleware.go - Bearer token authentication

PURPOSE:
  Verifies HMAC-signed bearer tokens on user-facing routes and places the
  authenticated user ID in the request context. Identity is established
  by an external login flow; this layer only verifies the token it
  issued.

DEVELOPMENT MODE:
  With an empty secret the middleware is a no-op and handlers trust the
  userId in the request body. Never run production this way.

SCOPING:
  A user token authorizes operations on that user's own ledger only.
  Handlers compare the path/body userId against the token subject.

SEE ALSO:
  - handlers.go: IssueToken and the per-handler user checks
  - config/config.go: JWT_SECRET
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldloop/rewards-engine/ledger"
)

type contextKey string

const (
	userIDKey contextKey = "userID"

	tokenLifetime = 24 * time.Hour
	bearerSchema  = "Bearer "
)

// Claims is the JWT payload. The user ID rides in the standard subject.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a bearer token for a user.
func GenerateToken(userID ledger.UserID, secret string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// AuthMiddleware verifies bearer tokens. An empty secret disables
// verification entirely (development mode).
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid bearer token", nil)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "Invalid bearer token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, ledger.UserID(claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerSchema) {
		return strings.TrimPrefix(authHeader, bearerSchema)
	}
	return ""
}

// authorizedFor reports whether the request may act on userID. With auth
// disabled every request passes; with auth enabled the token subject
// must match.
func authorizedFor(r *http.Request, userID ledger.UserID) bool {
	subject, ok := r.Context().Value(userIDKey).(ledger.UserID)
	if !ok {
		return true // auth disabled
	}
	return subject == userID
}
