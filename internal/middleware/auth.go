package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/qna-go-api/internal/utils"
)

const callerKey = "caller_id"

// AuthConfig selects how session tokens are verified. PublicKeyPEM takes precedence over Secret.
type AuthConfig struct {
	Secret       string
	PublicKeyPEM string
}

// Authenticate verifies an optional bearer token and exposes its subject as the caller identity.
// Requests without a token continue anonymously; a malformed or invalid token is rejected.
func Authenticate(cfg AuthConfig) (fiber.Handler, error) {
	var rsaKey *rsa.PublicKey
	if strings.TrimSpace(cfg.PublicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		rsaKey = key
	}
	if rsaKey == nil && cfg.Secret == "" {
		return nil, errors.New("jwt secret or public key is required")
	}

	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if rsaKey != nil {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return rsaKey, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return c.Next()
		}

		const bearer = "bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", []string{"invalid authorization header"})
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", []string{"invalid token"})
		}

		subject := strings.TrimSpace(claims.Subject)
		if subject == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", []string{"token has no subject"})
		}

		c.Locals(callerKey, subject)
		return c.Next()
	}, nil
}

// CallerID returns the authenticated caller, or "" for anonymous requests.
func CallerID(c *fiber.Ctx) string {
	if id, ok := c.Locals(callerKey).(string); ok {
		return id
	}
	return ""
}
