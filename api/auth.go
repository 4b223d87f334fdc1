/*
auth.go - Principal extraction middleware

PURPOSE:
  The core trusts an opaque principal {userId, role, accountId} issued by
  the external identity layer. This middleware verifies the bearer token
  signature and puts the principal on the request context; nothing here
  re-checks credentials.

TOKEN SHAPE:
  HS256 JWT with claims "sub" (user id), "role", and "account_id".

SEE ALSO:
  - handlers.go: reads the principal via PrincipalFrom
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/huseyingedek/appointment-backend/booking"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the verified principal stored by RequirePrincipal.
func PrincipalFrom(ctx context.Context) (booking.Principal, bool) {
	p, ok := ctx.Value(principalKey).(booking.Principal)
	return p, ok
}

// RequirePrincipal verifies the Authorization bearer token and stores the
// resulting principal on the context. Requests without a valid token get
// a 401.
func RequirePrincipal(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "missing bearer token"})
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "invalid token"})
				return
			}

			principal := booking.Principal{}
			if sub, ok := claims["sub"].(string); ok {
				principal.UserID = sub
			}
			if role, ok := claims["role"].(string); ok {
				principal.Role = role
			}
			if accountID, ok := claims["account_id"].(string); ok {
				principal.AccountID = accountID
			}
			if principal.AccountID == "" {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "token carries no account"})
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignToken issues a bearer token for the principal. Used by the dev
// server and tests; production tokens come from the identity service.
func SignToken(secret string, p booking.Principal, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":        p.UserID,
		"role":       p.Role,
		"account_id": p.AccountID,
		"exp":        time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
