// models/user.go
package models

import "time"

// Role is an account's authority level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents one account. ID is the identity provider's subject id.
type User struct {
	ID         string     `bson:"id" json:"id" firestore:"-"`
	Name       string     `bson:"name" json:"name" firestore:"name"`
	Email      string     `bson:"email" json:"email" firestore:"email"`
	Phone      string     `bson:"phone" json:"phone" firestore:"phone"`
	Address    string     `bson:"address" json:"address" firestore:"address"`
	Role       Role       `bson:"role" json:"role" firestore:"role"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt" firestore:"createdAt,serverTimestamp"`
	PromotedAt *time.Time `bson:"promotedAt,omitempty" json:"promotedAt,omitempty" firestore:"promotedAt,omitempty"`
}

// UserRegistration is the public sign-up payload.
type UserRegistration struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address"`
	Password string `json:"password" binding:"required"`
}

// UserSummary is a user row on the admin dashboard.
type UserSummary struct {
	User
	BookingCount int `json:"bookingCount"`
}

// Actor is whoever triggers an operation.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
