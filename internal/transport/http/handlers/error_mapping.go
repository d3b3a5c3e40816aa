package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// domainErrorCases is the default translation of core errors.
var domainErrorCases = []ErrorCase{
	{Err: domain.ErrInvalidID, Status: http.StatusBadRequest, Message: "invalid id"},
	{Err: domain.ErrNotFound, Status: http.StatusNotFound, Message: "not found"},
	{Err: domain.ErrDuplicateEmail, Status: http.StatusConflict, Message: "email already registered"},
	{Err: domain.ErrConflict, Status: http.StatusConflict, Message: "operation already in progress"},
	{Err: domain.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "incorrect email or password"},
	{Err: domain.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "could not validate credentials"},
	{Err: domain.ErrRateLimited, Status: http.StatusTooManyRequests, Message: "too many attempts, try again later"},
	{Err: domain.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
}

// RespondWithMappedError resolves err against cases, then the domain defaults,
// and falls back to fallbackStatus. Validation errors always yield 422 with the field.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if verr, ok := domain.AsValidationError(err); ok {
		resp := NewErrorResponse(c, verr.Error())
		resp.Field = verr.Field
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	for _, list := range [][]ErrorCase{cases, domainErrorCases} {
		for _, cs := range list {
			if cs.Err == nil {
				continue
			}
			if errors.Is(err, cs.Err) {
				if cs.Status == http.StatusUnauthorized {
					c.Header("WWW-Authenticate", "Bearer")
				}
				c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
				return
			}
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func respondError(c *gin.Context, err error, fallbackMessage string) {
	RespondWithMappedError(c, err, nil, http.StatusInternalServerError, fallbackMessage)
}
