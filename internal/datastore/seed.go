package datastore

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm/clause"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// SeedDefaultSettings inserts the default operator settings that are not yet
// present. Existing values are never overwritten. Returns the number of rows
// inserted.
func SeedDefaultSettings(ctx context.Context, m Manager) (int64, error) {
	defaults := entities.DefaultSettings()
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	now := time.Now().UTC()
	rows := make([]entities.SettingEntry, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, entities.SettingEntry{SettingKey: key, SettingValue: defaults[key], UpdatedAt: now})
	}

	result := m.DB().WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "setting_key"}}, DoNothing: true}).
		Create(&rows)
	return result.RowsAffected, result.Error
}
