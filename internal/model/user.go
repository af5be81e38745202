package model

import "time"

type UserRole string

const (
	RoleResident UserRole = "resident"
	RoleManager  UserRole = "manager"
	RoleAdmin    UserRole = "admin"
)

// Profile is the resident identity record. Credentials live in the external
// auth service; this is display/scoping data only.
type Profile struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	ApartmentID *string   `json:"apartment_id,omitempty"`
	Role        UserRole  `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
