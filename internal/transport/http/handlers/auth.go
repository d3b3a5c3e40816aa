package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/transport/http/middleware"
	"github.com/arklim/daily-tracker/internal/usecase"
)

// IdentityService is the subset of usecase.IdentityService used over HTTP.
type IdentityService interface {
	Register(ctx context.Context, in usecase.RegistrationInput) (domain.Identity, error)
	Authenticate(ctx context.Context, email, password string) (domain.Identity, error)
}

// TokenService is the subset of usecase.TokenService used over HTTP.
type TokenService interface {
	IssuePair(identity domain.Identity) (domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, domain.Identity, error)
	ResolveAccessToken(ctx context.Context, accessToken string) (domain.Identity, error)
}

// AuthHandler exposes registration, login, refresh and profile endpoints.
type AuthHandler struct {
	identities IdentityService
	tokens     TokenService
}

func NewAuthHandler(identities IdentityService, tokens TokenService) *AuthHandler {
	return &AuthHandler{identities: identities, tokens: tokens}
}

// AuthLimits holds per-endpoint middlewares, typically rate limits, run ahead of the handler.
type AuthLimits struct {
	Login    []gin.HandlerFunc
	Register []gin.HandlerFunc
	Refresh  []gin.HandlerFunc
}

func chain(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	out = append(out, pre...)
	return append(out, h)
}

// RegisterRoutes binds the /auth routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, limits AuthLimits) {
	r.POST("/register", chain(limits.Register, h.register)...)
	r.POST("/login", chain(limits.Login, h.loginForm)...)
	r.POST("/login/json", chain(limits.Login, h.loginJSON)...)
	r.POST("/refresh", chain(limits.Refresh, h.refresh)...)
	r.GET("/me", middleware.RequireAuth(h.tokens), h.me)
}

// RegisterUserRoutes binds the authenticated /user routes.
func (h *AuthHandler) RegisterUserRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.me)
	r.GET("/me", h.me)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	identity, err := h.identities.Register(c.Request.Context(), usecase.RegistrationInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Mobile:    req.Mobile,
		City:      strings.TrimSpace(req.City),
		DOB:       strings.TrimSpace(req.DOB),
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, newIdentityView(identity))
}

func (h *AuthHandler) loginForm(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		resp := NewErrorResponse(c, "username and password are required")
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	h.login(c, form.Username, form.Password)
}

func (h *AuthHandler) loginJSON(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "email and password are required"))
		return
	}
	h.login(c, req.Email, req.Password)
}

func (h *AuthHandler) login(c *gin.Context, email, password string) {
	identity, err := h.identities.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		respondError(c, err, "failed to authenticate")
		return
	}

	pair, err := h.tokens.IssuePair(identity)
	if err != nil {
		respondError(c, err, "failed to issue tokens")
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// refresh accepts the token as a JSON body, a form field or a query parameter.
func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBind(&req)

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token = strings.TrimSpace(c.Query("refresh_token"))
	}
	if token == "" {
		resp := NewErrorResponse(c, "refresh_token is required")
		resp.Field = "refresh_token"
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	pair, _, err := h.tokens.Refresh(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not authenticated"))
		return
	}
	c.JSON(http.StatusOK, newIdentityView(identity))
}
