package domain

// User is an account that can authenticate against the service.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}
