package entities

import "time"

// Violation is one detected helmet infraction. Only Reviewed, Flagged and
// UpdatedAt change after creation.
type Violation struct {
	ID                     uint      `gorm:"primaryKey;index:idx_violations_time_id,priority:2"`
	ImagePath              string    `gorm:"type:varchar(512);not null"`
	LicensePlateText       *string   `gorm:"type:varchar(32)"`
	LicensePlateConfidence *float64
	DetectionConfidence    *float64
	CameraSource           *string   `gorm:"type:varchar(64)"`
	ViolationTime          time.Time `gorm:"not null;index:idx_violations_time_id,priority:1"`
	Reviewed               bool      `gorm:"not null;default:false;index"`
	Flagged                bool      `gorm:"not null;default:false;index"`
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Violation) TableName() string {
	return "violations"
}
