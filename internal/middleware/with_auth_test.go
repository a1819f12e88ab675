package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/middleware"
)

func newAuthApp(userID interface{}, role string, opts middleware.AuthOptions) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(opts), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestWithAuthCandidateRole(t *testing.T) {
	opts := middleware.AuthOptions{Role: middleware.AuthRoleCandidate}

	require.Equal(t, fiber.StatusNoContent, perform(t, newAuthApp(uint(10), "Student", opts)).StatusCode)
	require.Equal(t, fiber.StatusNoContent, perform(t, newAuthApp(uint(10), "", opts)).StatusCode)
	require.Equal(t, fiber.StatusNoContent, perform(t, newAuthApp(uint(10), "teacher", opts)).StatusCode)
	require.Equal(t, fiber.StatusForbidden, perform(t, newAuthApp(uint(10), "guest", opts)).StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, perform(t, newAuthApp(nil, "student", opts)).StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, perform(t, newAuthApp(uint(0), "student", opts)).StatusCode)
}

func TestWithAuthReviewerAllowsTeacher(t *testing.T) {
	opts := middleware.AuthOptions{Role: middleware.AuthRoleReviewer}

	require.Equal(t, fiber.StatusNoContent, perform(t, newAuthApp(uint(1), "teacher", opts)).StatusCode)
	require.Equal(t, fiber.StatusNoContent, perform(t, newAuthApp(uint(1), "admin", opts)).StatusCode)
	require.Equal(t, fiber.StatusForbidden, perform(t, newAuthApp(uint(1), "student", opts)).StatusCode)
}

func TestWithAuthAnyRequiresUserWhenAsked(t *testing.T) {
	resp := perform(t, newAuthApp(nil, "", middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAnyAllowsAnonymousWhenOptedIn(t *testing.T) {
	resp := perform(t, newAuthApp(nil, "", middleware.AuthOptions{Role: middleware.AuthRoleAny}))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
