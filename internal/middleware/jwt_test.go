package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedSetsLocals(t *testing.T) {
	var userID interface{}
	var role interface{}
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		userID = c.Locals("user_id")
		role = c.Locals("user_role")
		return c.SendStatus(fiber.StatusNoContent)
	})

	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "42",
		"role": "Student",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, uint(42), userID)
	require.Equal(t, "student", role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	cases := map[string]string{
		"missing":      "",
		"scheme":       "Basic abc",
		"wrong_secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": 1}),
		"expired":      "Bearer " + signToken(t, "secret", jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
