package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	CookieName = "jwt"
	TokenTTL   = 24 * time.Hour
)

var secretKey = []byte("secret")

// SetSecret replaces the signing key. Call once at startup.
func SetSecret(secret string) {
	secretKey = []byte(secret)
}

// IssueToken signs a token whose issuer is the user id.
func IssueToken(userID uint, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// ParseToken validates a token and returns its claims.
func ParseToken(raw string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// tokenFrom reads the jwt cookie, falling back to an Authorization bearer
// header for API clients.
func tokenFrom(c *fiber.Ctx) string {
	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie
	}
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// CurrentUser returns the user Verify stored on the context.
func CurrentUser(c *fiber.Ctx) (Models.User, bool) {
	user, ok := c.Locals("user").(Models.User)
	return user, ok
}

func Verify(requiredPermission int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFrom(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not Logged In.",
			})
		}

		claims, err := ParseToken(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		var user Models.User
		if err := Models.DB.Where("id = ?", claims.Issuer).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		// Store user in context for later use in handlers
		c.Locals("user", user)

		if user.Permission >= requiredPermission && user.Permission > 0 {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions to access this resource",
		})
	}
}
