package repositories

import (
	"github.com/snshub/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	WithTx(tx *gorm.DB) LikeRepository
	CreateLike(like *models.Like) error
	HasUserLikedPost(postID, userID uint) (bool, error)
	GetLikeCountByPostID(postID uint) (int64, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PostgresLikeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &PostgresLikeRepository{db: tx}
}

// CreateLike creates a new like
func (r *PostgresLikeRepository) CreateLike(like *models.Like) error {
	return r.db.Create(like).Error
}

// HasUserLikedPost reports whether the user already liked the post
func (r *PostgresLikeRepository) HasUserLikedPost(postID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetLikeCountByPostID counts likes for a post
func (r *PostgresLikeRepository) GetLikeCountByPostID(postID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}
