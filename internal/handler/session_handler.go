package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/session"
	"github.com/etbur/eschool-portal/internal/teacher"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/response"
)

type sessionRuntime interface {
	Login(ctx context.Context, creds models.Credentials) (*teacher.Provider, error)
	Logout(ctx context.Context)
	Current() (*teacher.Provider, *session.Timer, error)
	Touch()
}

// loginRequest carries the tokens obtained from the school API login.
type loginRequest struct {
	AccessToken  string           `json:"access_token" binding:"required"`
	RefreshToken string           `json:"refresh_token"`
	User         *models.UserInfo `json:"user" binding:"required"`
}

// SessionStatus describes the inactivity timer for the front end.
type SessionStatus struct {
	Authenticated    bool `json:"authenticated"`
	Expired          bool `json:"expired"`
	RemainingSeconds int  `json:"remaining_seconds"`
	WindowSeconds    int  `json:"window_seconds"`
}

// SessionHandler manages the lifetime of the teacher session.
type SessionHandler struct {
	runtime sessionRuntime
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(runtime sessionRuntime) *SessionHandler {
	return &SessionHandler{runtime: runtime}
}

// Login stores the credentials and mounts a fresh teacher store.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	provider, err := h.runtime.Login(c.Request.Context(), models.Credentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		User:         req.User,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, provider.State())
}

// Logout ends the session.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.runtime.Logout(c.Request.Context())
	response.NoContent(c)
}

// Activity records a user interaction reported by the front end.
func (h *SessionHandler) Activity(c *gin.Context) {
	h.runtime.Touch()
	h.Status(c)
}

// Status reports whether a session is live and how long it has left.
func (h *SessionHandler) Status(c *gin.Context) {
	_, timer, err := h.runtime.Current()
	if err != nil {
		response.JSON(c, http.StatusOK, SessionStatus{})
		return
	}
	response.JSON(c, http.StatusOK, SessionStatus{
		Authenticated:    !timer.Expired(),
		Expired:          timer.Expired(),
		RemainingSeconds: timer.RemainingSeconds(),
		WindowSeconds:    int(timer.Window().Seconds()),
	})
}
