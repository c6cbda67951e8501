package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type QuoteRepository struct {
	db *gorm.DB
}

var _ ports.QuoteRepository = (*QuoteRepository)(nil)

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) CreateQuote(ctx context.Context, quote ports.QuoteRecord) (ports.QuoteRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.QuoteRecord{}, err
	}

	row, err := quoteRow(quote)
	if err != nil {
		return ports.QuoteRecord{}, err
	}
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return ports.QuoteRecord{}, errs.Wrap(err, "insert quote")
	}
	return mapQuote(row)
}

func (r *QuoteRepository) GetQuote(ctx context.Context, quoteID string) (ports.QuoteRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.QuoteRecord{}, err
	}

	var row model.Quote
	if err := db.Where("id = ?", quoteID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.QuoteRecord{}, offer.ErrQuoteNotFound
		}
		return ports.QuoteRecord{}, errs.Wrap(err, "query quote")
	}
	return mapQuote(row)
}

func (r *QuoteRepository) GetQuoteView(ctx context.Context, quoteID string) (ports.QuoteView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.QuoteView{}, err
	}

	var row model.Quote
	if err := db.Preload("Property").Where("id = ?", quoteID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.QuoteView{}, offer.ErrQuoteNotFound
		}
		return ports.QuoteView{}, errs.Wrap(err, "query quote with property")
	}
	return mapQuoteView(row)
}

func (r *QuoteRepository) ListQuotes(ctx context.Context, filter ports.QuoteFilter) ([]ports.QuoteView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Quote{}).Preload("Property")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Quote
	if err := query.Order("created_at desc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query quotes")
	}

	items := make([]ports.QuoteView, 0, len(rows))
	for _, row := range rows {
		view, err := mapQuoteView(row)
		if err != nil {
			return nil, err
		}
		items = append(items, view)
	}
	return items, nil
}

func (r *QuoteRepository) ListCalculating(ctx context.Context, userID string) ([]ports.QuoteRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Quote{}).
		Where("status = ? AND calculation_status = ?", string(offer.QuoteStatusPending), string(offer.CalculationCalculating))
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var rows []model.Quote
	if err := query.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query calculating quotes")
	}

	items := make([]ports.QuoteRecord, 0, len(rows))
	for _, row := range rows {
		item, err := mapQuote(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *QuoteRepository) RestartCalculation(ctx context.Context, quoteID string, details offer.Calculating, at time.Time) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	raw, err := offer.MarshalCalculation(details)
	if err != nil {
		return false, err
	}

	res := whereCalculating(db.Model(&model.Quote{}), quoteID).Updates(map[string]any{
		"calculation_details": datatypes.JSON(raw),
		"updated_at":          utc(at),
	})
	if res.Error != nil {
		return false, errs.Wrap(res.Error, "update quote calculation")
	}
	return res.RowsAffected > 0, nil
}

func (r *QuoteRepository) CompleteCalculation(ctx context.Context, quoteID string, details offer.Completed, amount int) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	raw, err := offer.MarshalCalculation(details)
	if err != nil {
		return false, err
	}

	res := whereCalculating(db.Model(&model.Quote{}), quoteID).Updates(map[string]any{
		"status":              string(offer.QuoteStatusAwaitingInspection),
		"amount":              amount,
		"calculation_status":  string(offer.CalculationCompleted),
		"calculation_details": datatypes.JSON(raw),
		"updated_at":          utc(details.CompletedAt),
	})
	if res.Error != nil {
		return false, errs.Wrap(res.Error, "complete quote calculation")
	}
	return res.RowsAffected > 0, nil
}

func (r *QuoteRepository) TransitionStatus(ctx context.Context, transition ports.QuoteTransition) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     string(transition.To),
		"updated_at": utc(transition.At),
	}
	if transition.Amount != nil {
		updates["amount"] = *transition.Amount
	}

	res := db.Model(&model.Quote{}).
		Where("id = ? AND status = ?", transition.QuoteID, string(transition.From)).
		Updates(updates)
	if res.Error != nil {
		return false, errs.Wrap(res.Error, "update quote status")
	}
	return res.RowsAffected > 0, nil
}

func whereCalculating(db *gorm.DB, quoteID string) *gorm.DB {
	return db.Where(
		"id = ? AND status = ? AND calculation_status = ?",
		quoteID,
		string(offer.QuoteStatusPending),
		string(offer.CalculationCalculating),
	)
}

func quoteRow(q ports.QuoteRecord) (model.Quote, error) {
	details := q.Calculation
	if details == nil {
		details = offer.Calculating{StartedAt: utc(q.CreatedAt)}
	}
	raw, err := offer.MarshalCalculation(details)
	if err != nil {
		return model.Quote{}, err
	}

	created := utc(q.CreatedAt)
	updated := q.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	status := q.Status
	if status == "" {
		status = offer.QuoteStatusPending
	}

	return model.Quote{
		ID:                 newID(q.ID),
		PropertyID:         q.PropertyID,
		UserID:             q.UserID,
		Amount:             q.Amount,
		Status:             string(status),
		Timeline:           string(q.Timeline),
		Motivation:         q.Motivation,
		ExpiresAt:          q.ExpiresAt.UTC(),
		CalculationStatus:  string(details.Status()),
		CalculationDetails: datatypes.JSON(raw),
		CreatedAt:          created,
		UpdatedAt:          updated.UTC(),
	}, nil
}

func mapQuote(row model.Quote) (ports.QuoteRecord, error) {
	details, err := offer.UnmarshalCalculation(row.CalculationDetails)
	if err != nil {
		return ports.QuoteRecord{}, errs.Wrapf(err, "decode calculation of quote %s", row.ID)
	}

	return ports.QuoteRecord{
		ID:          row.ID,
		PropertyID:  row.PropertyID,
		UserID:      row.UserID,
		Amount:      row.Amount,
		Status:      offer.QuoteStatus(row.Status),
		Timeline:    offer.Timeline(row.Timeline),
		Motivation:  row.Motivation,
		ExpiresAt:   row.ExpiresAt,
		Calculation: details,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func mapQuoteView(row model.Quote) (ports.QuoteView, error) {
	quote, err := mapQuote(row)
	if err != nil {
		return ports.QuoteView{}, err
	}
	return ports.QuoteView{Quote: quote, Property: mapProperty(row.Property)}, nil
}
