package models

// UserRole is the role string issued by the school API.
type UserRole string

const (
	RoleTeacher         UserRole = "teacher"
	RoleStudent         UserRole = "student"
	RoleDirector        UserRole = "director"
	RoleWeredaAdmin     UserRole = "wereda_admin"
	RoleZoneAdmin       UserRole = "zone_admin"
	RoleRegionAdmin     UserRole = "region_admin"
	RoleNationalAdmin   UserRole = "national_admin"
	RoleViceDirector    UserRole = "vice_director"
	RoleRecordOfficer   UserRole = "record_officer"
	RoleSchoolPrincipal UserRole = "principal"
)

// UserInfo mirrors the user object stored next to the tokens at login.
type UserInfo struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	NationalID   string   `json:"national_id,omitempty"`
	ProfilePhoto *string  `json:"profile_photo,omitempty"`
}

// FullName joins first and last name.
func (u UserInfo) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Credentials is everything the portal keeps for one signed-in user.
type Credentials struct {
	AccessToken  string    `json:"access_token" validate:"required"`
	RefreshToken string    `json:"refresh_token"`
	User         *UserInfo `json:"user,omitempty"`
}

// RefreshRequest is posted to the token refresh endpoint.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the new access token and, when rotation is on, a new refresh token.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
