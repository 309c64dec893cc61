// Package monitor evaluates host memory and disk usage for the system health check.
package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// GetLogger returns the module logger for system monitor
func GetLogger() logger.Logger {
	return logger.Global().Module("monitor")
}

// Snapshot is one reading of host resource usage.
type Snapshot struct {
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskPath      string  `json:"disk_path"`
	Health        string  `json:"health"`
}

// SystemMonitor reads memory and disk usage and compares them to thresholds.
type SystemMonitor struct {
	memoryThreshold float64
	diskThreshold   float64
	storagePath     string
	log             logger.Logger

	memoryUsage func(ctx context.Context) (float64, error)
	diskUsage   func(ctx context.Context, path string) (float64, error)
}

// NewSystemMonitor creates a monitor from the health settings.
func NewSystemMonitor(settings *conf.HealthSettings) *SystemMonitor {
	path := settings.StoragePath
	if path == "" {
		path = "/"
	}
	return &SystemMonitor{
		memoryThreshold: settings.MemoryThreshold,
		diskThreshold:   settings.DiskThreshold,
		storagePath:     path,
		log:             GetLogger(),
		memoryUsage:     virtualMemoryUsage,
		diskUsage:       diskUsage,
	}
}

// Check reports "good" when memory and disk usage are below their
// thresholds and "degraded" otherwise.
func (m *SystemMonitor) Check(ctx context.Context) (string, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.Health, nil
}

// Snapshot reads current usage. The disk reading uses the nearest existing
// ancestor of the storage path, since the violation directory may not have
// been created yet.
func (m *SystemMonitor) Snapshot(ctx context.Context) (Snapshot, error) {
	memPercent, err := m.memoryUsage(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get memory info: %w", err)
	}

	path := nearestExistingPath(m.storagePath)
	diskPercent, err := m.diskUsage(ctx, path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get disk usage for %s: %w", path, err)
	}

	snap := Snapshot{
		MemoryPercent: memPercent,
		DiskPercent:   diskPercent,
		DiskPath:      path,
		Health:        entities.HealthGood,
	}
	if memPercent >= m.memoryThreshold || diskPercent >= m.diskThreshold {
		snap.Health = entities.HealthDegraded
		m.log.Warn("resource usage above threshold",
			logger.Float64("memory_percent", memPercent),
			logger.Float64("memory_threshold", m.memoryThreshold),
			logger.Float64("disk_percent", diskPercent),
			logger.Float64("disk_threshold", m.diskThreshold),
			logger.String("disk_path", path))
	}
	return snap, nil
}

func virtualMemoryUsage(ctx context.Context) (float64, error) {
	info, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return info.UsedPercent, nil
}

func diskUsage(ctx context.Context, path string) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.UsedPercent, nil
}

// nearestExistingPath walks up from path until it finds a directory that exists
func nearestExistingPath(path string) string {
	current, err := filepath.Abs(path)
	if err != nil {
		return string(filepath.Separator)
	}
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}
