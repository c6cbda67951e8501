package repository

import (
	"context"

	"gorm.io/gorm"

	"cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type InspectionRepository struct {
	db *gorm.DB
}

var _ ports.InspectionRepository = (*InspectionRepository)(nil)

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

func (r *InspectionRepository) CreateInspection(ctx context.Context, inspection ports.InspectionRecord) (ports.InspectionRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.InspectionRecord{}, err
	}

	status := inspection.Status
	if status == "" {
		status = offer.InspectionScheduled
	}
	row := model.PropertyInspection{
		ID:            newID(inspection.ID),
		PropertyID:    inspection.PropertyID,
		QuoteID:       inspection.QuoteID,
		InspectorID:   inspection.InspectorID,
		ScheduledDate: inspection.ScheduledDate.UTC(),
		Status:        string(status),
		Notes:         inspection.Notes,
		CreatedAt:     utc(inspection.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.InspectionRecord{}, errs.Wrap(err, "insert inspection")
	}
	return mapInspection(row), nil
}

func (r *InspectionRepository) ListInspections(ctx context.Context, quoteID string) ([]ports.InspectionRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.PropertyInspection
	if err := db.Where("quote_id = ?", quoteID).Order("scheduled_date asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query inspections")
	}

	items := make([]ports.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapInspection(row))
	}
	return items, nil
}

func mapInspection(row model.PropertyInspection) ports.InspectionRecord {
	return ports.InspectionRecord{
		ID:            row.ID,
		PropertyID:    row.PropertyID,
		QuoteID:       row.QuoteID,
		InspectorID:   row.InspectorID,
		ScheduledDate: row.ScheduledDate,
		Status:        offer.InspectionStatus(row.Status),
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
	}
}
