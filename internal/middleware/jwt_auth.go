package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/cache"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
)

// UserContextKey is where the authenticated user is stored on the echo
// context.
const UserContextKey = "user"

// JWTAuthMiddleware validates the bearer token and resolves the caller to an
// existing user record, which it stores in the request context.
//
// The resolution is the hottest read in the system (it runs on every
// authenticated request), so it goes through the user cache first and only
// falls back to the datastore on a miss. The cache is not repopulated here;
// login is the only writer.
func JWTAuthMiddleware(secret string, userCache *cache.UserCache, userRepo repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}
			tokenString := parts[1]

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, apperr.ErrInvalidToken
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			user, ok := userCache.GetUser(c.Request().Context(), claims.Username)
			if !ok {
				user, err = userRepo.GetUserByUsername(claims.Username)
				if err != nil {
					if errors.Is(err, apperr.ErrUserNotFound) {
						return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
					}
					slog.Error("failed to load user for token", "username", claims.Username, "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
				}
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by JWTAuthMiddleware,
// or nil outside an authenticated route.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(UserContextKey).(*models.User)
	return user
}
