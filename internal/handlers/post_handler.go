package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/middleware"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository) *PostHandler {
	return &PostHandler{postRepository: postRepo}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/my", h.GetMyPosts)
	g.PUT("/posts/:post_id", h.ModifyPost)
	g.DELETE("/posts/:post_id", h.DeletePost)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		UserID: user.ID,
		Title:  req.Title,
		Body:   req.Body,
	}
	if err := h.postRepository.CreatePost(post); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": post})
}

// GetPosts returns the paginated post feed, newest first
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, limit := parsePagination(c)

	posts, total, err := h.postRepository.GetPosts(page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": posts},
		"meta":    paginationMeta(page, limit, total),
	})
}

// GetMyPosts returns the authenticated user's posts
func (h *PostHandler) GetMyPosts(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page, limit := parsePagination(c)

	posts, total, err := h.postRepository.GetPostsByUserID(user.ID, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": posts},
		"meta":    paginationMeta(page, limit, total),
	})
}

// ModifyPost updates a post's title and body. Author only.
func (h *PostHandler) ModifyPost(c echo.Context) error {
	user := middleware.CurrentUser(c)

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.ModifyPostRequest
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
	if post.UserID != user.ID {
		return apperr.ErrInvalidPermission
	}

	post.Title = req.Title
	post.Body = req.Body
	if err := h.postRepository.UpdatePost(post); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": post})
}

// DeletePost soft-deletes a post and its comments and likes. Author only.
func (h *PostHandler) DeletePost(c echo.Context) error {
	user := middleware.CurrentUser(c)

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		return apperr.ErrInvalidPermission
	}

	if err := h.postRepository.DeletePost(post.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
