package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with a sunset date.
type DeprecatedRoute struct {
	Path        string    // route pattern, e.g. /regions/:code
	SunsetDate  time.Time // date the endpoint will be removed
	Alternative string    // successor pattern (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset and Link headers to
// requests matching a deprecated route.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if !matchPattern(c.Path(), d.Path) {
				continue
			}
			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, successorPath(c.Path(), d.Path, d.Alternative)))
			}
			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}
		return c.Next()
	}
}

// matchPattern matches a path against a pattern whose ":name" segments
// match any single non-empty segment.
func matchPattern(path, pattern string) bool {
	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return false
	}
	for i := range qs {
		if strings.HasPrefix(qs[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != qs[i] {
			return false
		}
	}
	return true
}

// successorPath fills the alternative's ":name" segments from the path.
func successorPath(path, pattern, alternative string) string {
	params := map[string]string{}
	ps := strings.Split(strings.Trim(path, "/"), "/")
	for i, q := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if strings.HasPrefix(q, ":") && i < len(ps) {
			params[q] = ps[i]
		}
	}
	out := strings.Split(alternative, "/")
	for i, seg := range out {
		if v, ok := params[seg]; ok {
			out[i] = v
		}
	}
	return strings.Join(out, "/")
}
