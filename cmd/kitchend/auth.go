package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// AuthConfig controls the stub's bearer checking. With no secret the
// middleware only requires that some bearer token is present, which keeps
// local development friction-free.
type AuthConfig struct {
	Secret string
}

// IssueToken hands out a dev token for the display daemon.
func (a *AuthConfig) IssueToken(c *gin.Context) {
	var req struct {
		Display string `json:"display"`
	}
	c.ShouldBindJSON(&req)
	if req.Display == "" {
		req.Display = "kds"
	}

	secret := a.Secret
	if secret == "" {
		secret = "dev-secret"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.Display,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

// Middleware enforces the bearer credential on kitchen routes.
func (a *AuthConfig) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		if a.Secret != "" {
			raw := strings.TrimPrefix(header, "Bearer ")
			_, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(a.Secret), nil
			})
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		c.Next()
	}
}
