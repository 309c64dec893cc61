package entities

import "time"

// SettingEntry is one operator setting. Values are stored as strings
// whatever their logical type; callers parse them.
type SettingEntry struct {
	ID           uint      `gorm:"primaryKey"`
	SettingKey   string    `gorm:"type:varchar(191);not null;uniqueIndex"`
	SettingValue string    `gorm:"type:text;not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (SettingEntry) TableName() string {
	return "system_settings"
}

// DefaultSettings are written by the migrate command when seeding an empty store.
func DefaultSettings() map[string]string {
	return map[string]string{
		"camera_source":         "0",
		"detection_sensitivity": "0.7",
		"auto_capture":          "true",
		"ocr_enabled":           "true",
		"storage_path":          "./violations/",
		"max_storage_days":      "30",
	}
}

// All returns the migrated tables in creation order.
func All() []any {
	return []any{
		&DetectionSession{},
		&SystemStatus{},
		&Violation{},
		&SettingEntry{},
	}
}
