package identity

import "time"

const (
	RoleLearner  = "learner"
	RoleEmployer = "employer"
	// RoleIssuer may record credentials. Only provisioning creates it.
	RoleIssuer = "issuer"
)

// User is a registered account. PasswordHash is a bcrypt hash; raw passwords
// are never stored.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Username string
	Password string
	Role     string
}

// ValidRole reports whether role is one the service issues tokens for.
func ValidRole(role string) bool {
	return SelfAssignable(role) || role == RoleIssuer
}

// SelfAssignable reports whether a caller may pick role at registration.
func SelfAssignable(role string) bool {
	return role == RoleLearner || role == RoleEmployer
}
