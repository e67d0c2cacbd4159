package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/alarm"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/middleware"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
	"gorm.io/gorm"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository repositories.LikeRepository
	postRepository repositories.PostRepository
	alarmService   *alarm.Service
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, alarmService *alarm.Service) *LikeHandler {
	return &LikeHandler{
		likeRepository: likeRepo,
		postRepository: postRepo,
		alarmService:   alarmService,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.LikePost)
	g.GET("/posts/:post_id/likes/count", h.GetLikeCount)
}

// LikePost records a like and alarms the post author. The like and the
// alarm are written in one transaction; the live push afterwards is
// best-effort, so a broken alarm channel never fails the like itself.
func (h *LikeHandler) LikePost(c echo.Context) error {
	user := middleware.CurrentUser(c)

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		return err
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(post.ID, user.ID)
	if err != nil {
		return err
	}
	if hasLiked {
		return apperr.ErrAlreadyLiked
	}

	like := &models.Like{
		PostID: post.ID,
		UserID: user.ID,
	}
	_, err = h.alarmService.Send(
		models.AlarmNewLikeOnPost,
		models.AlarmArgs{FromUserID: user.ID, TargetID: post.ID},
		post.UserID,
		func(tx *gorm.DB) error {
			return h.likeRepository.WithTx(tx).CreateLike(like)
		},
	)
	if err != nil {
		if !errors.Is(err, apperr.ErrAlarmConnect) {
			return err
		}
		// Like and alarm are committed; only the live push failed.
		slog.Warn("live alarm push failed after like", "post_id", post.ID, "error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": like})
}

// GetLikeCount returns the number of likes on a post
func (h *LikeHandler) GetLikeCount(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		return err
	}

	count, err := h.likeRepository.GetLikeCountByPostID(post.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"post_id": post.ID, "likes_count": count},
	})
}
