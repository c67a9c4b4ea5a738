package domain

// Role type to distinguish between caller roles carried in the JWT
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin" // Operators allowed to run maintenance such as plan-day cleanup
)
