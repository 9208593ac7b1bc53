package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"waiver-sync/pkg/utils"
)

// SignatureHeader carries the hex HMAC-SHA256 signature of the webhook body.
const SignatureHeader = "X-SW-Signature"

// CORS allows cross-origin requests and short-circuits preflights
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// VerifySignature rejects webhook deliveries whose HMAC signature does not
// match the raw body. When secret is empty the check is disabled. The body is
// restored for downstream handlers.
func VerifySignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Error reading request"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !utils.ValidSignature(body, secret, c.GetHeader(SignatureHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}

		c.Next()
	}
}
