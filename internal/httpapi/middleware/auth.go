package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const SubjectKey = "auth_subject"

// AuthRequired verifies the HS256 bearer token issued by /login.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			abort(c)
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abort(c)
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			abort(c)
			return
		}

		c.Set(SubjectKey, sub)
		c.Next()
	}
}

func abort(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    40101,
		"message": "unauthorized",
		"data":    nil,
	})
}
