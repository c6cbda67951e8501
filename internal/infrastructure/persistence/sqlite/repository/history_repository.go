package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type HistoryRepository struct {
	db *gorm.DB
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) AppendHistory(ctx context.Context, entry ports.HistoryRecord) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.PropertyHistory{
		ID:         newID(entry.ID),
		PropertyID: entry.PropertyID,
		ChangedBy:  entry.ChangedBy,
		ChangeType: entry.ChangeType,
		NewValues:  datatypes.JSONMap(entry.NewValues),
		CreatedAt:  utc(entry.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert property history")
	}
	return nil
}

func (r *HistoryRepository) ListHistory(ctx context.Context, propertyID string) ([]ports.HistoryRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.PropertyHistory
	if err := db.Where("property_id = ?", propertyID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query property history")
	}

	items := make([]ports.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.HistoryRecord{
			ID:         row.ID,
			PropertyID: row.PropertyID,
			ChangedBy:  row.ChangedBy,
			ChangeType: row.ChangeType,
			NewValues:  map[string]any(row.NewValues),
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}
