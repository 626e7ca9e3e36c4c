package auth

// User is an administrator account able to sign in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
}
