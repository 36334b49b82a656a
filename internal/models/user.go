package models

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// User is mirrored from the identity provider. Employees are users with RoleEmployee.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	PhoneNumber string    `gorm:"type:varchar(30)" json:"phone_number"`
	Role        Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
