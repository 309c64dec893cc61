package repository

import (
	"context"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// SettingsRepository handles the operator settings key-value store.
// Values are opaque strings; callers parse numeric and boolean settings.
type SettingsRepository interface {
	// GetAll returns every setting ordered by key.
	GetAll(ctx context.Context) ([]entities.SettingEntry, error)
	// UpsertMany inserts or overwrites all entries in one transaction.
	// Either every entry is applied or none is.
	UpsertMany(ctx context.Context, entries map[string]string) error
}

// SettingsMap flattens entries into a key to value mapping.
func SettingsMap(entries []entities.SettingEntry) map[string]string {
	out := make(map[string]string, len(entries))
	for i := range entries {
		out[entries[i].SettingKey] = entries[i].SettingValue
	}
	return out
}
