package model

import "time"

type ValuationJob struct {
	QuoteID   string    `gorm:"column:quote_id;type:varchar(36);primaryKey"`
	DueAt     time.Time `gorm:"column:due_at;not null;index:idx_valuation_jobs_due"`
	Status    string    `gorm:"column:status;type:varchar(16);not null;index:idx_valuation_jobs_due"`
	Attempts  int       `gorm:"column:attempts;not null;default:0"`
	LastError string    `gorm:"column:last_error;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (ValuationJob) TableName() string {
	return "valuation_jobs"
}
