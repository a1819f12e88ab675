package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// Auth role constants understood by WithAuth.
const (
	AuthRoleAny       = "any"
	AuthRoleCandidate = "candidate"
	AuthRoleReviewer  = "reviewer"
)

// AuthOptions configures the WithAuth guard.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth returns a guard that requires an authenticated user and, when a
// role is given, a matching role claim. Candidate routes also admit students
// and tokens without a role claim; reviewer routes admit admins and teachers.
func WithAuth(opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser && !hasUser(c.Locals("user_id")) {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		current := normalizeRoleValue(c.Locals("user_role"))
		switch role {
		case AuthRoleAny:
		case AuthRoleCandidate:
			if current != "" && current != "candidate" && current != "student" && !isReviewerRole(current) {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
		case AuthRoleReviewer:
			if !isReviewerRole(current) {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
		default:
			if current != role {
				return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
			}
		}

		return c.Next()
	}
}

func hasUser(value interface{}) bool {
	switch v := value.(type) {
	case uint:
		return v > 0
	case int:
		return v > 0
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return false
	}
}

func isReviewerRole(role string) bool {
	return role == "reviewer" || role == "admin" || role == "teacher"
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
