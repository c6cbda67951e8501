package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

type NotificationRepository struct {
	db *gorm.DB
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n ports.NotificationRecord) (ports.NotificationRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.NotificationRecord{}, err
	}

	kind := n.Type
	if kind == "" {
		kind = offer.NotificationGeneral
	}
	row := model.Notification{
		ID:                newID(n.ID),
		UserID:            n.UserID,
		RelatedPropertyID: n.RelatedPropertyID,
		RelatedQuoteID:    n.RelatedQuoteID,
		Title:             n.Title,
		Message:           n.Message,
		NotificationType:  string(kind),
		IsRead:            n.IsRead,
		ReadAt:            utcPtr(n.ReadAt),
		CreatedAt:         utc(n.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.NotificationRecord{}, errs.Wrap(err, "insert notification")
	}
	return mapNotification(row), nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]ports.NotificationRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Notification
	if err := query.Order("created_at desc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query notifications")
	}

	items := make([]ports.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count unread notifications")
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, notificationIDs []string, at time.Time) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	query := db.Model(&model.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(notificationIDs) > 0 {
		query = query.Where("id IN ?", notificationIDs)
	}

	readAt := utc(at)
	res := query.Updates(map[string]any{
		"is_read": true,
		"read_at": readAt,
	})
	if res.Error != nil {
		return 0, errs.Wrap(res.Error, "mark notifications read")
	}
	return res.RowsAffected, nil
}

func mapNotification(row model.Notification) ports.NotificationRecord {
	return ports.NotificationRecord{
		ID:                row.ID,
		UserID:            row.UserID,
		RelatedPropertyID: row.RelatedPropertyID,
		RelatedQuoteID:    row.RelatedQuoteID,
		Title:             row.Title,
		Message:           row.Message,
		Type:              offer.NotificationType(row.NotificationType),
		IsRead:            row.IsRead,
		ReadAt:            row.ReadAt,
		CreatedAt:         row.CreatedAt,
	}
}
