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

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	alarmService      *alarm.Service
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, alarmService *alarm.Service) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		alarmService:      alarmService,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
}

// CreateComment persists a comment and alarms the post author, both in one
// transaction, then best-effort pushes the alarm live.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	user := middleware.CurrentUser(c)

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		return err
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Comment: req.Comment,
	}
	_, err = h.alarmService.Send(
		models.AlarmNewCommentOnPost,
		models.AlarmArgs{FromUserID: user.ID, TargetID: post.ID},
		post.UserID,
		func(tx *gorm.DB) error {
			return h.commentRepository.WithTx(tx).CreateComment(comment)
		},
	)
	if err != nil {
		if !errors.Is(err, apperr.ErrAlarmConnect) {
			return err
		}
		// Comment and alarm are committed; only the live push failed.
		slog.Warn("live alarm push failed after comment", "post_id", post.ID, "error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": comment})
}

// GetCommentsByPostID returns a post's comments, paginated, newest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		return err
	}

	page, limit := parsePagination(c)
	comments, total, err := h.commentRepository.GetCommentsByPostID(post.ID, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"comments": comments},
		"meta":    paginationMeta(page, limit, total),
	})
}
