package models

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// LocalUserID is the owner of every request when bearer auth is disabled.
const LocalUserID = "local"
