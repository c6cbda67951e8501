package model

import "time"

type User struct {
	ID              string     `gorm:"column:id;type:varchar(36);primaryKey"`
	Email           string     `gorm:"column:email;type:varchar(320);not null;uniqueIndex"`
	PasswordHash    string     `gorm:"column:password_hash;type:text;not null"`
	FirstName       string     `gorm:"column:first_name;type:text;not null;default:''"`
	LastName        string     `gorm:"column:last_name;type:text;not null;default:''"`
	Phone           string     `gorm:"column:phone;type:text;not null;default:''"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null"`
}

func (User) TableName() string {
	return "users"
}
