package coordinator

import (
	"context"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// sampleViolations returns the demo records, newest first, timed relative to now.
func sampleViolations(now time.Time) []entities.Violation {
	at := func(hours int) time.Time { return now.Add(-time.Duration(hours) * time.Hour) }
	str := func(s string) *string { return &s }
	f64 := func(f float64) *float64 { return &f }

	return []entities.Violation{
		{
			ImagePath:              "/violations/2024/violation_001.jpg",
			LicensePlateText:       str("ABC-123"),
			LicensePlateConfidence: f64(0.95),
			DetectionConfidence:    f64(0.87),
			CameraSource:           str("0"),
			ViolationTime:          at(2),
		},
		{
			ImagePath:              "/violations/2024/violation_002.jpg",
			LicensePlateText:       str("XYZ-789"),
			LicensePlateConfidence: f64(0.78),
			DetectionConfidence:    f64(0.92),
			CameraSource:           str("1"),
			ViolationTime:          at(4),
		},
		{
			ImagePath:           "/violations/2024/violation_003.jpg",
			DetectionConfidence: f64(0.73),
			CameraSource:        str("0"),
			ViolationTime:       at(6),
		},
		{
			ImagePath:              "/violations/2024/violation_004.jpg",
			LicensePlateText:       str("DEF-456"),
			LicensePlateConfidence: f64(0.89),
			DetectionConfidence:    f64(0.81),
			CameraSource:           str("1"),
			ViolationTime:          at(8),
			Reviewed:               true,
		},
		{
			ImagePath:              "/violations/2024/violation_005.jpg",
			LicensePlateText:       str("GHI-101"),
			LicensePlateConfidence: f64(0.83),
			DetectionConfidence:    f64(0.76),
			CameraSource:           str("0"),
			ViolationTime:          at(12),
			Flagged:                true,
		},
	}
}

// SeedSampleViolations inserts the five demo violations and points the
// status counters at them: detection_count becomes the number inserted and
// last_detection the newest sample. Both writes commit together.
func (c *Coordinator) SeedSampleViolations(ctx context.Context) (inserted []entities.Violation, err error) {
	const op = "seed_sample_violations"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	err = c.repos.Transaction(ctx, func(tx *repository.Set) error {
		inserted = sampleViolations(tx.Now())
		if err := tx.Violations.CreateBatch(ctx, inserted); err != nil {
			return err
		}

		count := int64(len(inserted))
		newest := inserted[0].ViolationTime
		_, err := tx.Status.Apply(ctx, repository.StatusUpdate{
			DetectionCount: &count,
			LastDetection:  &newest,
		})
		return err
	})
	if err != nil {
		return nil, storeError(err, op)
	}

	if c.metrics != nil {
		for range inserted {
			c.metrics.RecordViolationCreated(SourceSample)
		}
	}
	c.logger.Info("sample violations created", logger.Int("count", len(inserted)))

	return inserted, nil
}
