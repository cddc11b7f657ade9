package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the key used to store the authenticated user id in the context
const UserIDKey = "user_id"

// Auth middleware verifies the bearer token issued by the identity
// provider and stores its subject as the authenticated user id. Tokens
// must be HMAC signed with the shared secret.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(UserIDKey, subject)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user id from the gin context
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}
