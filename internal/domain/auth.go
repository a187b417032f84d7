package domain

import "time"

// Principal is the authenticated identity behind a call.
type Principal struct {
	UserID    int64
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}
