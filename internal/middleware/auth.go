package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorKey = "actor"

// Claims are issued by the identity provider. Subject holds the numeric user ID.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and stores the caller as a lifecycle.Actor.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := c.Request().Header.Get(echo.HeaderAuthorization)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization header required")
			}
			if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
				tokenString = tokenString[7:]
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			id, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil || id == 0 || !claims.Role.Valid() {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			SetActor(c, lifecycle.Actor{UserID: uint(id), Role: claims.Role})
			return next(c)
		}
	}
}

func SetActor(c echo.Context, a lifecycle.Actor) {
	c.Set(actorKey, a)
}

func ActorFromContext(c echo.Context) (lifecycle.Actor, bool) {
	a, ok := c.Get(actorKey).(lifecycle.Actor)
	return a, ok
}

// IssueToken signs a token for actor. The service itself never logs users
// in; this exists for tooling and tests.
func IssueToken(secret string, a lifecycle.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not set")
	}
	now := time.Now()
	claims := Claims{
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(a.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
