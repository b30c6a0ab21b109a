package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/api-marketplace-gateway/internal/httputil"
	"github.com/api-marketplace-gateway/internal/model"
)

type contextKey string

const callerContextKey contextKey = "caller"

// CallerFrom extracts the authenticated caller from the request context.
func CallerFrom(ctx context.Context) (model.Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(model.Caller)
	return caller, ok
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller model.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// TokenVerifier turns a bearer token into the caller it identifies.
type TokenVerifier interface {
	Verify(rawToken string) (model.Caller, error)
}

// UserClaims are the claims carried by tokens from the auth service. The
// subject is the numeric user id.
type UserClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

func (v *JWTVerifier) Verify(rawToken string) (model.Caller, error) {
	var claims UserClaims
	_, err := v.parser.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return model.Caller{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Caller{}, errors.New("token subject is not a user id")
	}
	if !claims.Role.Valid() {
		return model.Caller{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return model.Caller{UserID: userID, Role: claims.Role}, nil
}

// UserAuth returns middleware that authenticates platform users via Bearer
// token and stores the caller in the request context. limiter may be nil.
func UserAuth(verifier TokenVerifier, limiter *AttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(r, ScopeUserToken) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				if limiter != nil {
					limiter.Fail(r, ScopeUserToken)
				}
				respondError(w, http.StatusUnauthorized, "unauthorized", "Token is missing.")
				return
			}

			caller, err := verifier.Verify(token)
			if err != nil {
				if limiter != nil {
					limiter.Fail(r, ScopeUserToken)
				}
				respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid token. Please log in again.")
				return
			}

			if limiter != nil {
				limiter.Succeed(r, ScopeUserToken)
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	httputil.RespondError(w, status, code, message)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
