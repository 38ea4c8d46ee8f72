package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/olawanle/timebank-server/internal/timebank"
)

// AuthMiddleware guards the protected route group. It verifies the bearer
// token, rejects through the shared error envelope, and stores the
// authenticated user ID in the request context under "userId".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.MustGet("jwtSecret").([]byte)

		userID, err := bearerSubject(c.GetHeader("Authorization"), secret)
		if err != nil {
			errorResponse(c, err)
			c.Abort()
			return
		}

		c.Set("userId", userID)
		c.Next()
	}
}

// bearerSubject validates a "Bearer <token>" header and returns the subject
// claim. Every failure wraps ErrUnauthorized so callers map it to 401.
func bearerSubject(header string, secret []byte) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing authorization header: %w", timebank.ErrUnauthorized)
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", fmt.Errorf("malformed authorization header: %w", timebank.ErrUnauthorized)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", timebank.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unreadable token claims: %w", timebank.ErrUnauthorized)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token has no subject: %w", timebank.ErrUnauthorized)
	}

	return sub, nil
}
