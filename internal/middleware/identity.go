package middleware

// identity.go holds the claim-extraction helpers shared by the other
// middleware files and by handlers that need the caller's identity.

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or 0 when the request is
// unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

// Role returns the authenticated user's role, or "" when absent.
func Role(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(c echo.Context) bool { return Role(c) == "admin" }

// subjectID pulls the sub claim out of a parsed token.  JWT numbers
// decode as float64; some clients send the id as a string.
func subjectID(claims jwt.MapClaims) uint64 {
	switch v := claims["sub"].(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// rateKeyUserID renders the caller's id for rate-limit key building;
// anonymous requests share the "anon" bucket.
func rateKeyUserID(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
