// middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"pare/database"
	"pare/models"
)

// UserLoader looks up the account behind a token.
type UserLoader interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
}

// Claims is the access token payload.
type Claims struct {
	UserID  uint `json:"user_id"`
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 access token for u valid for ttl.
func GenerateToken(secret string, ttl time.Duration, u *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  u.ID,
		IsAdmin: u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
	}
	return parts[1], nil
}

// AuthMiddleware rejects requests without a valid bearer token or whose
// account no longer exists or is deactivated. The admin flag comes from the
// stored account, not the token.
func AuthMiddleware(secret string, users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "Token expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		user, err := Authorize(c.UserContext(), users, claims)
		if err != nil {
			return err
		}

		c.Locals("userId", user.ID)
		c.Locals("isAdmin", user.IsAdmin)
		return c.Next()
	}
}

// Authorize loads the account named by claims and refuses missing or
// deactivated accounts.
func Authorize(ctx context.Context, users UserLoader, claims *Claims) (*models.User, error) {
	user, err := users.ByID(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Account is deactivated")
	}
	return user, nil
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return fiber.NewError(fiber.StatusForbidden, "Access denied. Admin privileges required.")
	}
	return c.Next()
}

func GetUserID(c *fiber.Ctx) (uint, error) {
	if id, ok := c.Locals("userId").(uint); ok && id != 0 {
		return id, nil
	}
	return 0, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals("isAdmin").(bool)
	return admin
}
