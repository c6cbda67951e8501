package model

import (
	"time"

	"gorm.io/datatypes"
)

type Quote struct {
	ID                 string         `gorm:"column:id;type:varchar(36);primaryKey"`
	PropertyID         string         `gorm:"column:property_id;type:varchar(36);not null;index"`
	UserID             string         `gorm:"column:user_id;type:varchar(36);not null;index"`
	Amount             int            `gorm:"column:amount;not null;default:0"`
	Status             string         `gorm:"column:status;type:varchar(32);not null;index"`
	Timeline           string         `gorm:"column:timeline;type:varchar(16);not null"`
	Motivation         string         `gorm:"column:motivation;type:text;not null;default:''"`
	ExpiresAt          time.Time      `gorm:"column:expires_at;not null"`
	CalculationStatus  string         `gorm:"column:calculation_status;type:varchar(16);not null;index"`
	CalculationDetails datatypes.JSON `gorm:"column:calculation_details;not null"`
	CreatedAt          time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;not null"`

	Property Property `gorm:"foreignKey:PropertyID;references:ID"`
}

func (Quote) TableName() string {
	return "quotes"
}
