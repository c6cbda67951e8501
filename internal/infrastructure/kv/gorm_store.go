package kv

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

// Store keeps short-lived keys in the kv_entries table.
// Expired entries read as missing and are removed lazily.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.KVStore = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.KVEntry
	if err := s.db.WithContext(ctx).Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query kv by key")
	}

	if row.ExpiresAt != nil && !s.now().UTC().Before(*row.ExpiresAt) {
		if err := s.Delete(ctx, trimmedKey); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	row := model.KVEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		row.ExpiresAt = &expires
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert kv key")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.KVEntry{}).Error; err != nil {
		return errs.Wrap(err, "delete kv key")
	}
	return nil
}

// PurgeExpired removes every entry whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if _, err := checkKey(ctx, "purge"); err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&model.KVEntry{})
	if res.Error != nil {
		return 0, errs.Wrap(res.Error, "purge expired kv keys")
	}
	return res.RowsAffected, nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return trimmedKey, nil
}
