package repositories

import (
	"github.com/snshub/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	CreateComment(comment *models.Comment) error
	GetCommentsByPostID(postID uint, page, limit int) ([]models.Comment, int64, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PostgresCommentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &PostgresCommentRepository{db: tx}
}

// CreateComment creates a new comment
func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentsByPostID retrieves a page of a post's comments, newest first
func (r *PostgresCommentRepository) GetCommentsByPostID(postID uint, page, limit int) ([]models.Comment, int64, error) {
	var comments []models.Comment
	var total int64

	if err := r.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.Where("post_id = ?", postID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error

	return comments, total, err
}
