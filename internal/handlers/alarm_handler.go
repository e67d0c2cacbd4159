package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/snshub/backend/internal/alarm"
	"github.com/snshub/backend/internal/middleware"
	"github.com/snshub/backend/internal/repositories"
)

// AlarmHandler handles alarm history and the live subscription stream
type AlarmHandler struct {
	alarmRepository repositories.AlarmRepository
	alarmService    *alarm.Service
}

// NewAlarmHandler creates a new AlarmHandler
func NewAlarmHandler(alarmRepo repositories.AlarmRepository, alarmService *alarm.Service) *AlarmHandler {
	return &AlarmHandler{
		alarmRepository: alarmRepo,
		alarmService:    alarmService,
	}
}

// RegisterAlarmRoutes registers alarm-related routes
func (h *AlarmHandler) RegisterAlarmRoutes(g *echo.Group) {
	g.GET("/users/alarm", h.GetAlarms)
	g.GET("/users/alarm/subscribe", h.Subscribe)
	g.DELETE("/users/alarm/:alarm_id", h.DismissAlarm)
}

// GetAlarms returns the caller's paginated alarm history, newest first
func (h *AlarmHandler) GetAlarms(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page, limit := parsePagination(c)

	alarms, total, err := h.alarmRepository.GetAlarmsByRecipientID(user.ID, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"alarms": alarms},
		"meta":    paginationMeta(page, limit, total),
	})
}

// DismissAlarm soft-deletes one of the caller's alarms. Another user's alarm
// reads as not found.
func (h *AlarmHandler) DismissAlarm(c echo.Context) error {
	user := middleware.CurrentUser(c)

	alarmID, err := strconv.ParseUint(c.Param("alarm_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid alarm ID")
	}

	if err := h.alarmRepository.DeleteAlarm(uint(alarmID), user.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Subscribe opens the caller's live alarm stream. The connection stays open
// until the client disconnects or the idle timeout elapses; either way the
// deferred disconnect frees the registry slot.
func (h *AlarmHandler) Subscribe(c echo.Context) error {
	user := middleware.CurrentUser(c)

	emitter, err := h.alarmService.Connect(user.ID)
	if err != nil {
		return err
	}
	defer h.alarmService.Disconnect(user.ID, emitter)

	return emitter.Stream(c.Response(), c.Request())
}
