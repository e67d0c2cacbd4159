package repositories

import (
	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/models"
	"gorm.io/gorm"
)

// AlarmRepository defines the interface for alarm data operations.
// Alarm rows are append-only: soft delete is the only mutation after create.
type AlarmRepository interface {
	WithTx(tx *gorm.DB) AlarmRepository
	CreateAlarm(alarm *models.Alarm) error
	GetAlarmsByRecipientID(recipientID uint, page, limit int) ([]models.Alarm, int64, error)
	DeleteAlarm(id, recipientID uint) error
}

// PostgresAlarmRepository implements AlarmRepository for PostgreSQL
type PostgresAlarmRepository struct {
	db *gorm.DB
}

// NewPostgresAlarmRepository creates a new PostgresAlarmRepository
func NewPostgresAlarmRepository(db *gorm.DB) *PostgresAlarmRepository {
	return &PostgresAlarmRepository{db: db}
}

// WithTx returns a repository bound to the given transaction, so an alarm
// insert can join the transaction of the activity that triggered it.
func (r *PostgresAlarmRepository) WithTx(tx *gorm.DB) AlarmRepository {
	return &PostgresAlarmRepository{db: tx}
}

// CreateAlarm appends a new alarm record
func (r *PostgresAlarmRepository) CreateAlarm(alarm *models.Alarm) error {
	return r.db.Create(alarm).Error
}

// GetAlarmsByRecipientID retrieves a page of the recipient's alarms, newest
// first. Soft-deleted rows are filtered by gorm's DeletedAt handling.
func (r *PostgresAlarmRepository) GetAlarmsByRecipientID(recipientID uint, page, limit int) ([]models.Alarm, int64, error) {
	var alarms []models.Alarm
	var total int64

	if err := r.db.Model(&models.Alarm{}).Where("user_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.Where("user_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&alarms).Error

	return alarms, total, err
}

// DeleteAlarm soft-deletes a single alarm, scoped to its recipient so a user
// can only dismiss their own notifications.
func (r *PostgresAlarmRepository) DeleteAlarm(id, recipientID uint) error {
	result := r.db.Where("id = ? AND user_id = ?", id, recipientID).Delete(&models.Alarm{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrAlarmNotFound
	}
	return nil
}
