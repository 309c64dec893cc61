package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// GetSettings returns every operator setting as a key to value mapping.
func (c *Coordinator) GetSettings(ctx context.Context) (settings map[string]string, err error) {
	const op = "get_settings"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	entries, err := c.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, op)
	}
	return repository.SettingsMap(entries), nil
}

// UpsertSettings writes every entry in one transaction and returns the full
// settings mapping read after the commit. Values are stored as given.
func (c *Coordinator) UpsertSettings(ctx context.Context, entries map[string]string) (settings map[string]string, err error) {
	const op = "upsert_settings"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if len(entries) == 0 {
		return nil, invalid(ErrNoSettings, op)
	}
	for key := range entries {
		if strings.TrimSpace(key) == "" {
			return nil, invalid(ErrEmptySettingKey, op)
		}
	}

	if err := c.repos.Settings.UpsertMany(ctx, entries); err != nil {
		return nil, storeError(err, op)
	}
	c.logger.Info("settings updated", logger.Int("keys", len(entries)))

	all, err := c.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, op)
	}
	return repository.SettingsMap(all), nil
}
