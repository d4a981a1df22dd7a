package common

import "time"

// AuthCookieName is the cookie consulted when a request carries no
// Authorization header.
const AuthCookieName = "auth_token"

// Account roles.
const (
	RoleUser  = "User"
	RoleTutor = "Tutor"
	RoleAdmin = "Admin"
)

// TokenBytes is the number of random bytes behind verification and reset
// tokens. Hex encoding doubles the length.
const TokenBytes = 20

// DefaultTokenWindow is the validity of verification and reset tokens when
// the configuration does not override it.
const DefaultTokenWindow = 60 * time.Minute
