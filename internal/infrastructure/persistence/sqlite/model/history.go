package model

import (
	"time"

	"gorm.io/datatypes"
)

type PropertyHistory struct {
	ID         string            `gorm:"column:id;type:varchar(36);primaryKey"`
	PropertyID string            `gorm:"column:property_id;type:varchar(36);not null;index"`
	ChangedBy  string            `gorm:"column:changed_by;type:varchar(36);not null"`
	ChangeType string            `gorm:"column:change_type;type:varchar(32);not null"`
	NewValues  datatypes.JSONMap `gorm:"column:new_values"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null"`
}

func (PropertyHistory) TableName() string {
	return "property_history"
}
