package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type PropertyRepository struct {
	db *gorm.DB
}

var _ ports.PropertyRepository = (*PropertyRepository)(nil)

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, property ports.PropertyRecord) (ports.PropertyRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PropertyRecord{}, err
	}

	row := propertyRow(property)
	if err := db.Create(&row).Error; err != nil {
		return ports.PropertyRecord{}, errs.Wrap(err, "insert property")
	}
	return mapProperty(row), nil
}

func (r *PropertyRepository) GetProperty(ctx context.Context, propertyID string) (ports.PropertyRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PropertyRecord{}, err
	}

	var row model.Property
	if err := db.Where("id = ?", propertyID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PropertyRecord{}, offer.ErrPropertyNotFound
		}
		return ports.PropertyRecord{}, errs.Wrap(err, "query property")
	}
	return mapProperty(row), nil
}

func propertyRow(p ports.PropertyRecord) model.Property {
	created := utc(p.CreatedAt)
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	status := p.Status
	if status == "" {
		status = offer.PropertyStatusActive
	}

	return model.Property{
		ID:           newID(p.ID),
		UserID:       p.UserID,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareFeet:   p.SquareFeet,
		YearBuilt:    p.YearBuilt,
		PropertyType: string(p.PropertyType),
		LotSize:      p.LotSize,
		Condition:    string(p.Condition),
		Description:  p.Description,
		Status:       string(status),
		CreatedAt:    created,
		UpdatedAt:    updated.UTC(),
	}
}

func mapProperty(row model.Property) ports.PropertyRecord {
	return ports.PropertyRecord{
		ID:           row.ID,
		UserID:       row.UserID,
		Address:      row.Address,
		City:         row.City,
		State:        row.State,
		ZipCode:      row.ZipCode,
		Bedrooms:     row.Bedrooms,
		Bathrooms:    row.Bathrooms,
		SquareFeet:   row.SquareFeet,
		YearBuilt:    row.YearBuilt,
		PropertyType: offer.PropertyType(row.PropertyType),
		LotSize:      row.LotSize,
		Condition:    offer.Condition(row.Condition),
		Description:  row.Description,
		Status:       offer.PropertyStatus(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
