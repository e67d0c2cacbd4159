package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/cache"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler handles registration and login
type UserHandler struct {
	userRepository repositories.UserRepository
	userCache      *cache.UserCache
	jwtSecret      string
	jwtExpiry      time.Duration
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, userCache *cache.UserCache, jwtSecret string, jwtExpiry time.Duration) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		userCache:      userCache,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
	}
}

// RegisterAuthRoutes registers the unauthenticated user routes
func (h *UserHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/users/join", h.Join)
	g.POST("/users/login", h.Login)
}

// Join handles user registration
func (h *UserHandler) Join(c echo.Context) error {
	var req models.JoinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.userRepository.GetUserByUsername(req.Username); err == nil {
		return apperr.ErrDuplicateUsername
	} else if !errors.Is(err, apperr.ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username: req.Username,
		Password: string(hashed),
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": user})
}

// Login authenticates a user and returns a signed JWT. The user record is
// cached here (and only here): every authenticated request afterwards reads
// it back through the auth middleware.
func (h *UserHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, ok := h.userCache.GetUser(c.Request().Context(), req.Username)
	if !ok {
		var err error
		user, err = h.userRepository.GetUserByUsername(req.Username)
		if err != nil {
			return err
		}
	}
	h.userCache.SetUser(c.Request().Context(), user)

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return apperr.ErrInvalidPassword
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"token": token}})
}

func (h *UserHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
