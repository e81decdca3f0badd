package auth

import "github.com/gofiber/fiber/v2"

const sessionKey = "auth.session"

// SetSession stores the verified session on the request.
func SetSession(c *fiber.Ctx, s Session) {
	c.Locals(sessionKey, s)
}

// SessionFrom returns the session stored by the bearer middleware.
func SessionFrom(c *fiber.Ctx) (Session, bool) {
	s, ok := c.Locals(sessionKey).(Session)
	return s, ok
}
