package models

import "github.com/golang-jwt/jwt/v5"

// UserRole identifies the caller's role carried in the access token.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleParent     UserRole = "PARENT"
)

// JWTClaims are the claims this service expects in tokens issued by the
// external auth provider. SchoolID scopes every request to one school.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id"`
	jwt.RegisteredClaims
}
