package model

import "time"

type PropertyInspection struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey"`
	PropertyID    string    `gorm:"column:property_id;type:varchar(36);not null;index"`
	QuoteID       string    `gorm:"column:quote_id;type:varchar(36);not null;index"`
	InspectorID   *string   `gorm:"column:inspector_id;type:varchar(36)"`
	ScheduledDate time.Time `gorm:"column:scheduled_date;not null"`
	Status        string    `gorm:"column:status;type:varchar(16);not null"`
	Notes         *string   `gorm:"column:notes;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (PropertyInspection) TableName() string {
	return "property_inspections"
}
