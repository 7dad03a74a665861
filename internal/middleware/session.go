package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/session"
	"github.com/etbur/eschool-portal/internal/teacher"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/logger"
	"github.com/etbur/eschool-portal/pkg/response"
)

const (
	// ContextProviderKey is the gin context key storing the live teacher provider.
	ContextProviderKey = "teacherProvider"
	// ContextTimerKey is the gin context key storing the session timer.
	ContextTimerKey = "sessionTimer"
	// RemainingHeader reports the whole seconds left before the session times out.
	RemainingHeader = logger.SessionRemainingHeader
)

type sessionSource interface {
	Current() (*teacher.Provider, *session.Timer, error)
}

// Session protects routes by requiring a live teacher session. Requests that change state count
// as user activity and slide the inactivity window; reads such as state polling do not.
func Session(source sessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider, timer, err := source.Current()
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if timer.Check() {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session expired"))
			c.Abort()
			return
		}

		if countsAsActivity(c.Request.Method) {
			timer.Touch()
		}
		c.Header(RemainingHeader, strconv.Itoa(timer.RemainingSeconds()))
		c.Set(ContextProviderKey, provider)
		c.Set(ContextTimerKey, timer)
		c.Next()
	}
}

func countsAsActivity(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
