package models

// UserRole mirrors the user_role ENUM. Authentication happens outside this
// core; the role only decides who may resolve disputes and override results.
type UserRole string

const (
	RolePlayer UserRole = "PLAYER"
	RoleAdmin  UserRole = "ADMIN"
)

// User carries the subset of the platform user this core touches: identity
// for participation checks and the two wallet balances.
type User struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Coins    int64  `json:"coins" db:"coins"`
	Diamonds int64  `json:"diamonds" db:"diamonds"`
}

// Game is the catalog entry tournaments and queues reference.
type Game struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
