package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// AUTH_SUBJECT_KEY is the gin context key of the authenticated caller
const AUTH_SUBJECT_KEY = "auth_subject"

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []string
	// JWTPublicKey is a PEM encoded RSA key; empty disables Bearer tokens
	JWTPublicKey string
}

// Authenticate validates an "ApiKey <key>" or "Bearer <jwt>" Authorization header
// and returns the caller subject ("apikey" for API keys).
func Authenticate(authHeader string, cfg AuthConfig) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}
	credential := strings.TrimSpace(parts[1])

	switch authType := strings.ToLower(parts[0]); authType {
	case "apikey":
		if err := validateAPIKey(credential, cfg.APIKeys); err != nil {
			return "", err
		}
		return "apikey", nil
	case "bearer":
		claims, err := validateJWT(credential, cfg.JWTPublicKey)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	default:
		return "", fmt.Errorf("unsupported authorization type: %s", authType)
	}
}

// RequireAuth returns a gin middleware that admits API keys and signed tokens
func RequireAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := Authenticate(c.GetHeader("Authorization"), cfg)
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
					"details": err.Error(),
				},
			})
			return
		}

		c.Set(AUTH_SUBJECT_KEY, subject)
		c.Next()
	}
}

func validateAPIKey(apiKey string, validKeys []string) error {
	configured := false
	for _, key := range validKeys {
		if key == "" {
			continue
		}
		configured = true
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return nil
		}
	}

	if !configured {
		return errors.New("no API keys configured")
	}
	return errors.New("invalid API key")
}

// validateJWT checks an RS256 token; exp and nbf are enforced by the parser
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
