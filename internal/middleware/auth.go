package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/utils"
)

const userContextKey = "currentUser"

// SessionUserKey is the server-session key holding the user's hex ID.
const SessionUserKey = "user_id"

// LoadUser resolves the caller's identity from either the JWT cookie or
// the server session and stores the user document in ctx locals. Both
// transports feed one authorization path: password logins, OTP
// verification and social logins all end up here identically. Requests
// without valid credentials pass through anonymously.
func LoadUser(cfg *config.Config, sessions *session.Store, users *data.UsersStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var userID bson.ObjectID
		tokenIssued, haveToken := int64(0), false

		if token := c.Cookies("token"); token != "" {
			if id, issuedAt, err := utils.ParseToken(cfg.JWTSecret, token); err == nil {
				userID = id
				tokenIssued = issuedAt.Unix()
				haveToken = true
			}
		}

		if userID.IsZero() {
			if sess, err := sessions.Get(c); err == nil {
				if hex, ok := sess.Get(SessionUserKey).(string); ok {
					if id, err := bson.ObjectIDFromHex(hex); err == nil {
						userID = id
					}
				}
			}
		}

		if userID.IsZero() {
			return c.Next()
		}

		user, err := users.FindByID(c.Context(), userID)
		if err != nil {
			// A deleted account or store hiccup degrades to anonymous.
			return c.Next()
		}

		// Tokens minted before the user's last logout are dead.
		if haveToken && !user.LastLogout.IsZero() && tokenIssued < user.LastLogout.Unix() {
			return c.Next()
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

// Protect rejects requests that LoadUser left anonymous.
func Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// CurrentUser extracts the authenticated user from context.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return nil, false
	}

	if user, ok := value.(*models.User); ok {
		return user, true
	}

	return nil, false
}

// SetCurrentUser places a user into ctx locals. Tests use it to run
// protected handlers without the full middleware chain.
func SetCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(userContextKey, user)
}
