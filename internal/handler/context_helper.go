package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/middleware"
	"github.com/etbur/eschool-portal/internal/session"
	"github.com/etbur/eschool-portal/internal/teacher"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/response"
)

func providerFromContext(c *gin.Context) *teacher.Provider {
	value, exists := c.Get(middleware.ContextProviderKey)
	if !exists {
		return nil
	}
	provider, ok := value.(*teacher.Provider)
	if !ok {
		return nil
	}
	return provider
}

func timerFromContext(c *gin.Context) *session.Timer {
	value, exists := c.Get(middleware.ContextTimerKey)
	if !exists {
		return nil
	}
	timer, ok := value.(*session.Timer)
	if !ok {
		return nil
	}
	return timer
}

// requireProvider writes an unauthorized response when the session middleware did not run.
func requireProvider(c *gin.Context) (*teacher.Provider, bool) {
	provider := providerFromContext(c)
	if provider == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no active session"))
		return nil, false
	}
	return provider, true
}
