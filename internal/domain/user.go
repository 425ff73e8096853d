package domain

import "time"

// Roles an AccountUser can hold. Only admins may look accounts up by
// internal id.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AccountUser owns accounts. Password holds a bcrypt hash.
type AccountUser struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"size:16;default:user" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *AccountUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
