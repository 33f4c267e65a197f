package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type loginReq struct {
	AdminKey string `json:"admin_key" binding:"required"`
}

// Login exchanges the admin key for a short-lived bearer token. The key is
// never stored; only its bcrypt hash lives in config.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if h.Cfg.AdminKeyHash == "" {
		fail(c, http.StatusForbidden, 40301, "admin access not configured")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.Cfg.AdminKeyHash), []byte(req.AdminKey)); err != nil {
		fail(c, http.StatusUnauthorized, 40102, "invalid admin key")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	})
	signed, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		fail(c, http.StatusInternalServerError, 50001, "failed to sign token")
		return
	}

	ok(c, gin.H{"token": signed})
}
