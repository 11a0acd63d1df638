package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Deprecation describes an endpoint scheduled for removal.
type Deprecation struct {
	Sunset    time.Time
	Successor string // replacement endpoint, optional
}

// DeprecationMiddleware adds RFC 8594 Deprecation/Sunset headers, a
// successor-version Link and a 299 Warning to the wrapped route.
func DeprecationMiddleware(d Deprecation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Deprecation", "true")
		c.Set("Sunset", d.Sunset.UTC().Format(time.RFC1123))
		if d.Successor != "" {
			c.Set(fiber.HeaderLink, fmt.Sprintf(`<%s>; rel="successor-version"`, d.Successor))
		}
		days := time.Until(d.Sunset).Hours() / 24
		if days < 0 {
			days = 0
		}
		c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
		return c.Next()
	}
}
