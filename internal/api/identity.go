package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dori/workscope/internal/scope"
)

const viewerKey = "viewer"

// Claims are the bearer token fields read by Identity. The subject holds
// the numeric user id.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity attaches the calling scope.Viewer to the request. With a secret
// it requires an HS256 bearer token; without one it trusts the X-User-ID
// and X-User-Admin headers set by an upstream gateway.
func Identity(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			v   scope.Viewer
			err error
		)
		if secret != "" {
			v, err = viewerFromToken(c.Get(fiber.HeaderAuthorization), secret)
		} else {
			v, err = viewerFromHeaders(c)
		}
		if err != nil {
			return err
		}
		c.Locals(viewerKey, v)
		return c.Next()
	}
}

func viewerFromToken(auth, secret string) (scope.Viewer, error) {
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return scope.Viewer{}, fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	tokenStr := strings.TrimSpace(auth[7:])

	var claims Claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fiber.ErrUnauthorized
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return scope.Viewer{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return scope.Viewer{}, fiber.NewError(fiber.StatusUnauthorized, "token subject is not a user id")
	}
	return scope.Viewer{UserID: id, Admin: claims.Admin}, nil
}

func viewerFromHeaders(c *fiber.Ctx) (scope.Viewer, error) {
	raw := strings.TrimSpace(c.Get("X-User-ID"))
	if raw == "" {
		return scope.Viewer{}, fiber.NewError(fiber.StatusUnauthorized, "missing X-User-ID")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return scope.Viewer{}, fiber.NewError(fiber.StatusUnauthorized, "invalid X-User-ID")
	}
	admin, _ := strconv.ParseBool(c.Get("X-User-Admin"))
	return scope.Viewer{UserID: id, Admin: admin}, nil
}

// viewer returns the identity attached by Identity
func viewer(c *fiber.Ctx) scope.Viewer {
	v, _ := c.Locals(viewerKey).(scope.Viewer)
	return v
}

// SignToken issues an HS256 token for v, for tests and local tooling
func SignToken(secret string, v scope.Viewer) (string, error) {
	claims := Claims{
		Admin: v.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(v.UserID, 10),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
