package domain

import "time"

// Session links a client to a user after a successful login. Role and Username
// are copied at login time and are not refreshed when the user changes.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	Role      Role
	CreatedAt time.Time
}

// Identity is what the access guard hands to a protected operation.
type Identity struct {
	SessionID string
	UserID    int64
	Username  string
	Role      Role
}

// AccessDecision records the outcome of a guard evaluation for one request.
type AccessDecision struct {
	Authenticated bool
	RoleMatch     bool
}
