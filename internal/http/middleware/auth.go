// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for the authenticated API
// surface and a shared-secret guard for internal endpoints.
//
// Auth() extracts the Authorization: Bearer token, verifies it through a
// TokenVerifier, and stores the resulting user ID in the Gin context under
// the "userID" key. Failures abort with 401 and a stable error code:
//
//   - missing_auth  when no bearer token is present
//   - invalid_token when verification fails or yields an empty subject
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// userIDKey is the Gin context key holding the authenticated user ID.
const userIDKey = "userID"

// TokenVerifier validates a bearer token and returns the subject user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// JWTVerifier verifies HS256-signed JWTs against a shared secret.
type JWTVerifier struct {
	Secret []byte
}

// NewJWTVerifier returns a verifier for HS256 tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{Secret: []byte(secret)}
}

// Verify parses and validates the token and returns its subject claim.
// Tokens signed with any method other than HMAC are rejected.
func (v *JWTVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.Secret, nil
	})
	if err != nil {
		return "", err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// Auth returns a middleware that authenticates requests via verifier and
// stores the user ID in the context for downstream handlers.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request.Header.Get("Authorization"))
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "missing_auth", "missing bearer token")
			return
		}
		uid, err := verifier.Verify(token)
		if err != nil || uid == "" {
			abortJSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// InternalToken returns a middleware that guards internal endpoints with a
// constant shared secret carried in the X-Internal-Token header. An empty
// configured secret closes the endpoint entirely.
func InternalToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader("X-Internal-Token") != secret {
			abortJSON(c, http.StatusUnauthorized, "invalid_token", "invalid internal token")
			return
		}
		c.Next()
	}
}

// UserIDFrom returns the authenticated user ID stored by Auth, if any.
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

// bearerToken extracts the token from an Authorization header value,
// accepting any case of the "Bearer" scheme.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// abortJSON writes the standard error envelope and stops the chain. It lives
// here rather than in handlers to avoid an import cycle.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
