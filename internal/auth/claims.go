package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// Claims are the fields the portal reads from a school API access token.
type Claims struct {
	UserID    int64           `json:"user_id"`
	TokenType string          `json:"token_type"`
	Role      models.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes an access token without verifying its signature. The portal never holds
// the signing key; the school API remains the authority on validity.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "malformed access token")
	}
	return claims, nil
}

// RequireRole allows creds through when the stored user carries one of roles.
// The role is read from the stored user first and from the token claims as a fallback.
func RequireRole(creds *models.Credentials, roles ...models.UserRole) error {
	if creds == nil || creds.AccessToken == "" {
		return appErrors.ErrUnauthorized
	}

	role := models.UserRole("")
	if creds.User != nil {
		role = creds.User.Role
	}
	if role == "" {
		if claims, err := ParseClaims(creds.AccessToken); err == nil {
			role = claims.Role
		}
	}

	for _, allowed := range roles {
		if role == allowed {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
}
