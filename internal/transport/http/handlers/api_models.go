package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// RegistrationRequest is the sign-up payload. Field rules are enforced by the identity service.
type RegistrationRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	City      string `json:"city"`
	DOB       string `json:"dob"`
	Password  string `json:"password"`
}

// LoginForm mirrors the OAuth2 password grant form; username carries the email.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(pair domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

// IdentityView is the public projection of an identity; it never includes the password hash.
type IdentityView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	City      string    `json:"city"`
	DOB       string    `json:"dob"`
	CreatedAt time.Time `json:"created_at"`
	CurrentXP int       `json:"currentXp"`
	MaxXP     int       `json:"maxXp"`
	Level     int       `json:"level"`
}

func newIdentityView(identity domain.Identity) IdentityView {
	progress := identity.Progress()
	return IdentityView{
		ID:        identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Mobile:    identity.Mobile,
		City:      identity.City,
		DOB:       identity.DOB,
		CreatedAt: identity.CreatedAt.UTC(),
		CurrentXP: progress.CurrentXP,
		MaxXP:     progress.MaxXP,
		Level:     progress.Level,
	}
}

type HabitRequest struct {
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

type HabitView struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func newHabitView(h domain.Habit) HabitView {
	return HabitView{
		ID:          h.ID,
		UserID:      h.UserID,
		Title:       h.Title,
		IsCompleted: h.IsCompleted,
		Color:       h.Color,
		Icon:        h.Icon,
	}
}

type LogRequest struct {
	Date     string `json:"date"`
	Steps    int    `json:"steps"`
	WaterMl  int    `json:"waterMl"`
	ProteinG int    `json:"proteinG"`
}

// LogView renders stored, transient and gap-filled logs alike; id and userId
// are omitted when the log was never persisted.
type LogView struct {
	ID       string `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Date     string `json:"date"`
	Steps    int    `json:"steps"`
	WaterMl  int    `json:"waterMl"`
	ProteinG int    `json:"proteinG"`
}

func newLogView(l domain.DailyLog) LogView {
	return LogView{
		ID:       l.ID,
		UserID:   l.UserID,
		Date:     l.Date,
		Steps:    l.Steps,
		WaterMl:  l.WaterMl,
		ProteinG: l.ProteinG,
	}
}

func newEntryView(e domain.LogEntry) LogView {
	return LogView{Date: e.Date, Steps: e.Steps, WaterMl: e.WaterMl, ProteinG: e.ProteinG}
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the outcome of every dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
