package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/middleware"
	"github.com/noah-isme/qna-go-api/internal/utils"
)

func newAuthApp(t *testing.T, cfg middleware.AuthConfig) *fiber.App {
	t.Helper()
	auth, err := middleware.Authenticate(cfg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(auth)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CallerID(c))
	})
	return app
}

func signHS256(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func perform(t *testing.T, app *fiber.App, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestAuthenticateAllowsAnonymousRequests(t *testing.T) {
	app := newAuthApp(t, middleware.AuthConfig{Secret: "secret"})

	resp, body := perform(t, app, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Empty(t, body)
}

func TestAuthenticateExposesSubject(t *testing.T) {
	app := newAuthApp(t, middleware.AuthConfig{Secret: "secret"})

	resp, body := perform(t, app, signHS256(t, "secret", "user_2abc", time.Now().Add(time.Hour)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user_2abc", body)
}

func TestAuthenticateRejectsInvalidTokens(t *testing.T) {
	app := newAuthApp(t, middleware.AuthConfig{Secret: "secret"})

	cases := map[string]string{
		"wrong secret": signHS256(t, "other", "user_1", time.Now().Add(time.Hour)),
		"expired":      signHS256(t, "secret", "user_1", time.Now().Add(-time.Hour)),
		"no subject":   signHS256(t, "secret", "", time.Now().Add(time.Hour)),
		"garbage":      "not-a-jwt",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := perform(t, app, token)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var envelope utils.Envelope
			require.NoError(t, json.Unmarshal([]byte(body), &envelope))
			require.Equal(t, fiber.StatusUnauthorized, envelope.StatusCode)
			require.False(t, envelope.Success())
		})
	}
}

func TestAuthenticateVerifiesRS256WithPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	app := newAuthApp(t, middleware.AuthConfig{PublicKeyPEM: string(publicPEM)})

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "user_rsa",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	resp, body := perform(t, app, signed)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user_rsa", body)

	resp, _ = perform(t, app, signHS256(t, "secret", "user_rsa", time.Now().Add(time.Hour)))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateRequiresKeyMaterial(t *testing.T) {
	_, err := middleware.Authenticate(middleware.AuthConfig{})
	require.Error(t, err)

	_, err = middleware.Authenticate(middleware.AuthConfig{PublicKeyPEM: "not pem"})
	require.Error(t, err)
}
