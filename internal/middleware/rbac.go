package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/auth"
	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/pkg/response"
)

// CredentialSource yields the stored credentials checked by RBAC.
type CredentialSource interface {
	Credentials(ctx context.Context) (*models.Credentials, error)
}

// RBAC enforces the role stored with the signed-in user's credentials.
func RBAC(source CredentialSource, allowed ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds, err := source.Credentials(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if err := auth.RequireRole(creds, allowed...); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTeacher is RBAC for the teacher portal.
func RequireTeacher(source CredentialSource) gin.HandlerFunc {
	return RBAC(source, models.RoleTeacher)
}
