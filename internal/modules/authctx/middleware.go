// Package authctx supplies the current operator identity to the request
// context. The engine trusts the token but does not manage credentials;
// issuing tokens belongs to the identity service, not this core.
package authctx

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

type ctxKey int

const (
	operatorKey ctxKey = iota
	locationKey
)

// Middleware parses the bearer token and stores the operator_id and
// location_id claims in the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			operatorID, _ := claims["operator_id"].(string)
			if operatorID == "" {
				// Older tokens carry the operator in the subject claim.
				operatorID, _ = claims["sub"].(string)
			}
			if operatorID == "" {
				http.Error(w, `{"error":"token has no operator identity"}`, http.StatusUnauthorized)
				return
			}
			locationID, _ := claims["location_id"].(string)

			ctx := context.WithValue(r.Context(), operatorKey, operatorID)
			ctx = context.WithValue(ctx, locationKey, locationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorID returns the authenticated operator id, or "" outside the
// middleware.
func OperatorID(ctx context.Context) string {
	id, _ := ctx.Value(operatorKey).(string)
	return id
}

// LocationID returns the operator's location claim, if present.
func LocationID(ctx context.Context) string {
	id, _ := ctx.Value(locationKey).(string)
	return id
}

// WithOperator injects an operator id directly; used by tests.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey, operatorID)
}
