package model

import "time"

type Property struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID       string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	Address      string    `gorm:"column:address;type:text;not null"`
	City         string    `gorm:"column:city;type:text;not null"`
	State        string    `gorm:"column:state;type:text;not null"`
	ZipCode      string    `gorm:"column:zip_code;type:varchar(10);not null"`
	Bedrooms     float64   `gorm:"column:bedrooms;not null"`
	Bathrooms    float64   `gorm:"column:bathrooms;not null"`
	SquareFeet   *int      `gorm:"column:square_feet"`
	YearBuilt    *int      `gorm:"column:year_built"`
	PropertyType string    `gorm:"column:property_type;type:varchar(32);not null"`
	LotSize      string    `gorm:"column:lot_size;type:text;not null;default:''"`
	Condition    string    `gorm:"column:condition;type:varchar(16);not null"`
	Description  *string   `gorm:"column:description;type:text"`
	Status       string    `gorm:"column:status;type:varchar(32);not null;default:'active'"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Property) TableName() string {
	return "properties"
}
