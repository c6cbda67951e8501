package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type ValuationJobRepository struct {
	db *gorm.DB
}

var _ ports.ValuationJobRepository = (*ValuationJobRepository)(nil)

func NewValuationJobRepository(db *gorm.DB) *ValuationJobRepository {
	return &ValuationJobRepository{db: db}
}

func (r *ValuationJobRepository) EnsureJob(ctx context.Context, job ports.ValuationJob) (ports.ValuationJob, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ValuationJob{}, false, err
	}

	status := job.Status
	if status == "" {
		status = ports.ValuationJobPending
	}
	created := utc(job.CreatedAt)
	row := model.ValuationJob{
		QuoteID:   job.QuoteID,
		DueAt:     job.DueAt.UTC(),
		Status:    string(status),
		CreatedAt: created,
		UpdatedAt: created,
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quote_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return ports.ValuationJob{}, false, errs.Wrap(res.Error, "insert valuation job")
	}
	if res.RowsAffected > 0 {
		return mapValuationJob(row), true, nil
	}

	existing, found, err := r.GetJob(ctx, job.QuoteID)
	if err != nil {
		return ports.ValuationJob{}, false, err
	}
	if !found {
		return ports.ValuationJob{}, false, errors.New("valuation job vanished after conflict")
	}
	return existing, false, nil
}

func (r *ValuationJobRepository) GetJob(ctx context.Context, quoteID string) (ports.ValuationJob, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ValuationJob{}, false, err
	}

	var row model.ValuationJob
	if err := db.Where("quote_id = ?", quoteID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ValuationJob{}, false, nil
		}
		return ports.ValuationJob{}, false, errs.Wrap(err, "query valuation job")
	}
	return mapValuationJob(row), true, nil
}

func (r *ValuationJobRepository) ListDueJobs(ctx context.Context, now time.Time, limit int) ([]ports.ValuationJob, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ValuationJob{}).
		Where("status = ? AND due_at <= ?", string(ports.ValuationJobPending), now.UTC()).
		Order("due_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ValuationJob
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query due valuation jobs")
	}

	items := make([]ports.ValuationJob, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapValuationJob(row))
	}
	return items, nil
}

func (r *ValuationJobRepository) MarkJobDone(ctx context.Context, quoteID string, at time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.ValuationJob{}).
		Where("quote_id = ?", quoteID).
		Updates(map[string]any{
			"status":     string(ports.ValuationJobDone),
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": utc(at),
		}).Error; err != nil {
		return errs.Wrap(err, "mark valuation job done")
	}
	return nil
}

func (r *ValuationJobRepository) RecordJobFailure(ctx context.Context, failure ports.ValuationJobFailure) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": failure.Message,
		"updated_at": utc(failure.At),
	}
	if failure.GiveUp {
		updates["status"] = string(ports.ValuationJobFailed)
	} else if !failure.RetryAt.IsZero() {
		updates["due_at"] = failure.RetryAt.UTC()
	}

	if err := db.Model(&model.ValuationJob{}).
		Where("quote_id = ? AND status = ?", failure.QuoteID, string(ports.ValuationJobPending)).
		Updates(updates).Error; err != nil {
		return errs.Wrap(err, "record valuation job failure")
	}
	return nil
}

func mapValuationJob(row model.ValuationJob) ports.ValuationJob {
	return ports.ValuationJob{
		QuoteID:   row.QuoteID,
		DueAt:     row.DueAt,
		Status:    ports.ValuationJobStatus(row.Status),
		Attempts:  row.Attempts,
		LastError: row.LastError,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
