package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceTypeDry   ServiceType = "dry"
	ServiceTypeWater ServiceType = "water"
)

func (t ServiceType) Valid() bool {
	return t == ServiceTypeDry || t == ServiceTypeWater
}

type Service struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	DurationMinutes int             `gorm:"not null;check:duration_minutes >= 0" json:"duration_minutes"`
	Type            ServiceType     `gorm:"type:varchar(10);not null" json:"type"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
