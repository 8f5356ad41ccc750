package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/types"
)

// UserIDKey is the request local holding the authenticated user id
const UserIDKey = "userId"

// Authenticator resolves an access token to an application user id
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// Auth validates the bearer access token and stores the user id in the
// request locals
func Auth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const op = "authMiddleware - authenticate"

		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return types.NewUnauthorizedError(op, "missing or malformed authorization header")
		}

		userID, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id set by Auth
func UserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(UserIDKey).(string)
	return userID, ok && userID != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
