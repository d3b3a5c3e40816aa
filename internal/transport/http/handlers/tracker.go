package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/transport/http/middleware"
)

// TrackerService is the subset of usecase.TrackerService used over HTTP.
type TrackerService interface {
	GetHabits(ctx context.Context, userID string) ([]domain.Habit, error)
	CreateHabit(ctx context.Context, userID string, draft domain.HabitDraft) (domain.Habit, error)
	ToggleHabit(ctx context.Context, userID, habitID string) (domain.Habit, error)
	SyncLog(ctx context.Context, userID string, entry domain.LogEntry) (domain.DailyLog, error)
	GetTodayLog(ctx context.Context, userID string) (domain.DailyLog, error)
	GetLogHistory(ctx context.Context, userID, start, end string) ([]domain.LogEntry, error)
}

// TrackerHandler serves habits and daily logs of the authenticated user.
type TrackerHandler struct {
	tracker TrackerService
}

func NewTrackerHandler(tracker TrackerService) *TrackerHandler {
	return &TrackerHandler{tracker: tracker}
}

// RegisterRoutes binds tracker routes; r must already require authentication.
func (h *TrackerHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/habits", h.listHabits)
	r.POST("/habits", h.createHabit)
	r.PUT("/habits/:id/toggle", h.toggleHabit)
	// older mobile clients still POST the toggle
	r.POST("/habits/:id/toggle", h.toggleHabit)

	r.GET("/logs/today", h.todayLog)
	r.GET("/logs/history", h.logHistory)
	r.POST("/logs/sync", h.syncLog)
}

func userID(c *gin.Context) (string, bool) {
	id, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
	}
	return id, ok
}

func (h *TrackerHandler) listHabits(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	habits, err := h.tracker.GetHabits(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err, "failed to load habits")
		return
	}

	views := make([]HabitView, 0, len(habits))
	for _, habit := range habits {
		views = append(views, newHabitView(habit))
	}
	c.JSON(http.StatusOK, views)
}

func (h *TrackerHandler) createHabit(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req HabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid habit payload"))
		return
	}

	habit, err := h.tracker.CreateHabit(c.Request.Context(), uid, domain.HabitDraft{
		Title:       req.Title,
		IsCompleted: req.IsCompleted,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		respondError(c, err, "failed to create habit")
		return
	}

	c.JSON(http.StatusCreated, newHabitView(habit))
}

func (h *TrackerHandler) toggleHabit(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	habit, err := h.tracker.ToggleHabit(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidID, Status: http.StatusBadRequest, Message: "invalid habit id"},
			{Err: domain.ErrNotFound, Status: http.StatusNotFound, Message: "habit not found"},
			{Err: domain.ErrConflict, Status: http.StatusConflict, Message: "habit toggle already in progress"},
		}, http.StatusInternalServerError, "failed to toggle habit")
		return
	}

	c.JSON(http.StatusOK, newHabitView(habit))
}

func (h *TrackerHandler) todayLog(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	log, err := h.tracker.GetTodayLog(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err, "failed to load today's log")
		return
	}
	c.JSON(http.StatusOK, newLogView(log))
}

// logHistory accepts startDate/endDate as well as start_date/end_date.
func (h *TrackerHandler) logHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	start := firstQuery(c, "startDate", "start_date")
	end := firstQuery(c, "endDate", "end_date")

	history, err := h.tracker.GetLogHistory(c.Request.Context(), uid, start, end)
	if err != nil {
		respondError(c, err, "failed to load log history")
		return
	}

	views := make([]LogView, 0, len(history))
	for _, entry := range history {
		views = append(views, newEntryView(entry))
	}
	c.JSON(http.StatusOK, views)
}

func (h *TrackerHandler) syncLog(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid log payload"))
		return
	}

	log, err := h.tracker.SyncLog(c.Request.Context(), uid, domain.LogEntry{
		Date:     req.Date,
		Steps:    req.Steps,
		WaterMl:  req.WaterMl,
		ProteinG: req.ProteinG,
	})
	if err != nil {
		respondError(c, err, "failed to sync log")
		return
	}
	c.JSON(http.StatusOK, newLogView(log))
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}
