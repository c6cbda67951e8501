package model

import "time"

type Notification struct {
	ID                string     `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID            string     `gorm:"column:user_id;type:varchar(36);not null;index:idx_notifications_user_read"`
	RelatedPropertyID *string    `gorm:"column:related_property_id;type:varchar(36)"`
	RelatedQuoteID    *string    `gorm:"column:related_quote_id;type:varchar(36)"`
	Title             string     `gorm:"column:title;type:text;not null"`
	Message           string     `gorm:"column:message;type:text;not null"`
	NotificationType  string     `gorm:"column:notification_type;type:varchar(32);not null"`
	IsRead            bool       `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read"`
	ReadAt            *time.Time `gorm:"column:read_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
}

func (Notification) TableName() string {
	return "notifications"
}
