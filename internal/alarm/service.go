// Package alarm implements notification delivery: persisted alarm records
// plus best-effort live push over per-user SSE emitters.
package alarm

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/snshub/backend/internal/apperr"
	"github.com/snshub/backend/internal/models"
	"github.com/snshub/backend/internal/repositories"
	"gorm.io/gorm"
)

// EventName is the SSE event name alarm clients listen for.
const EventName = "alarm"

// Activity is a datastore write that triggers an alarm (a like or comment
// insert). It runs in the same transaction as the alarm insert, so the two
// commit or roll back together.
type Activity func(tx *gorm.DB) error

// Service records alarms and forwards them to connected recipients.
type Service struct {
	db       *gorm.DB
	alarms   repositories.AlarmRepository
	users    repositories.UserRepository
	emitters *Registry
	timeout  time.Duration
}

// NewService creates an alarm Service
func NewService(db *gorm.DB, alarmRepo repositories.AlarmRepository, userRepo repositories.UserRepository, registry *Registry) *Service {
	return &Service{
		db:       db,
		alarms:   alarmRepo,
		users:    userRepo,
		emitters: registry,
		timeout:  DefaultTimeout,
	}
}

// Connect opens a live alarm channel for the user and announces it with a
// "connect completed" event. If that initial push fails the channel is
// deregistered and the connect fails with ErrAlarmConnect.
func (s *Service) Connect(userID uint) (*Emitter, error) {
	emitter := NewEmitter(s.timeout)
	s.emitters.Register(userID, emitter)
	if err := emitter.Send(Event{Name: EventName, Data: "connect completed"}); err != nil {
		s.emitters.RemoveEmitter(userID, emitter)
		emitter.Close()
		return nil, fmt.Errorf("%w: %v", apperr.ErrAlarmConnect, err)
	}
	slog.Info("alarm emitter connected", "user_id", userID)
	return emitter, nil
}

// Disconnect closes the emitter and frees the user's registry slot, unless a
// newer emitter has already replaced it.
func (s *Service) Disconnect(userID uint, emitter *Emitter) {
	emitter.Close()
	s.emitters.RemoveEmitter(userID, emitter)
	slog.Info("alarm emitter disconnected", "user_id", userID)
}

// Send records an alarm for the recipient and best-effort pushes it live.
//
// The recipient is resolved first; an unknown recipient fails with
// ErrUserNotFound before anything is written. The activity (when non-nil)
// and the alarm insert share one transaction. The push happens strictly
// after commit: a push failure returns the committed alarm together with
// ErrAlarmConnect, which callers must not treat as a failure of the
// triggering action.
func (s *Service) Send(alarmType models.AlarmType, args models.AlarmArgs, recipientID uint, activity Activity) (*models.Alarm, error) {
	recipient, err := s.users.GetUserByID(recipientID)
	if err != nil {
		return nil, err
	}

	a := &models.Alarm{
		UserID: recipient.ID,
		Type:   alarmType,
		Args:   args,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if activity != nil {
			if err := activity(tx); err != nil {
				return err
			}
		}
		return s.alarms.WithTx(tx).CreateAlarm(a)
	})
	if err != nil {
		return nil, err
	}

	return a, s.Dispatch(a)
}

// Dispatch pushes an already-persisted alarm to the recipient's live
// emitter. The emitter is re-fetched from the registry on every dispatch; a
// handle is never cached across calls. No connected emitter is the common
// case and is not an error. A failed push deregisters the broken emitter and
// reports ErrAlarmConnect.
func (s *Service) Dispatch(a *models.Alarm) error {
	emitter, ok := s.emitters.Lookup(a.UserID)
	if !ok {
		slog.Debug("no emitter found", "user_id", a.UserID)
		return nil
	}

	event := Event{
		ID:   strconv.FormatUint(uint64(a.ID), 10),
		Name: EventName,
		Data: "new alarm",
	}
	if err := emitter.Send(event); err != nil {
		s.emitters.RemoveEmitter(a.UserID, emitter)
		slog.Warn("alarm push failed, emitter removed", "user_id", a.UserID, "alarm_id", a.ID, "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrAlarmConnect, err)
	}
	return nil
}
