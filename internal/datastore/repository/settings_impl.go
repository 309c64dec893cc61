package repository

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// settingsRepository implements SettingsRepository.
type settingsRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *gorm.DB, now func() time.Time) SettingsRepository {
	return &settingsRepository{db: db, now: now}
}

func (r *settingsRepository) GetAll(ctx context.Context) ([]entities.SettingEntry, error) {
	var entries []entities.SettingEntry
	if err := r.db.WithContext(ctx).Order("setting_key ASC").Find(&entries).Error; err != nil {
		return nil, dbError(err, "get_settings")
	}
	return entries, nil
}

func (r *settingsRepository) UpsertMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return noFields("upsert_settings")
	}

	// Sorted keys keep lock acquisition order stable across concurrent batches
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	now := r.now()
	rows := make([]entities.SettingEntry, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, entities.SettingEntry{
			SettingKey:   key,
			SettingValue: entries[key],
			UpdatedAt:    now,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return dbError(err, "upsert_settings", "keys", len(keys))
	}
	return nil
}
