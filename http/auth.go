package http

import (
	"eventhub/entity"
	"net/http"
	"slices"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	tokenCookie = "token"
	identityKey = "identity"

	roleOrganizer = entity.RoleOrganizer
	roleAdmin     = entity.RoleAdmin
)

type sessionClaims struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	jwt.RegisteredClaims
}

// authenticate resolves the caller from an HS256 session token taken from
// the token cookie or a bearer Authorization header.
func authenticate(secret []byte) echo.MiddlewareFunc {
	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No token, authorization denied")
			}

			var claims sessionClaims
			_, err := jwt.ParseWithClaims(token, &claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || claims.User.ID == "" {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "Token is not valid",
					Internal: err,
				}
			}

			identity := entity.Identity{
				UserID: claims.User.ID,
				Role:   claims.User.Role,
			}
			if identity.Role == "" {
				identity.Role = entity.RoleAttendee
			}
			c.Set(identityKey, identity)

			ctx := c.Request().Context()
			ctx = log.ToContext(ctx, log.FromContext(ctx).WithField("user_id", identity.UserID))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !slices.Contains(roles, identity(c).Role) {
				return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
			}
			return next(c)
		}
	}
}

func identity(c echo.Context) entity.Identity {
	id, _ := c.Get(identityKey).(entity.Identity)
	return id
}
