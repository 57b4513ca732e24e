package model

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/logger"
)

const runRetentionSweepInterval = 24 * time.Hour

// StartRunRetentionCleaner deletes finished runs older than retentionDays, once
// at start and then daily until ctx is done.
func StartRunRetentionCleaner(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		logger.Logger.Debug("run retention disabled", zap.Int("retention_days", retentionDays))
		return
	}

	cleanup := func() {
		deleted, err := CleanExpiredRuns(ctx, retentionDays)
		if err != nil {
			logger.Logger.Warn("run retention cleanup failed", zap.Error(err))
			return
		}
		if deleted > 0 {
			logger.Logger.Info("deleted expired runs", zap.Int64("deleted_rows", deleted), zap.Int("retention_days", retentionDays))
		}
	}

	cleanup()

	ticker := time.NewTicker(runRetentionSweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info("run retention cleaner stopped", zap.Error(ctx.Err()))
				return
			case <-ticker.C:
				cleanup()
			}
		}
	}()

	logger.Logger.Info("run retention cleaner started", zap.Int("retention_days", retentionDays))
}

// CleanExpiredRuns deletes finished runs created before the retention window.
// Running runs are kept whatever their age.
func CleanExpiredRuns(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()
	tx := DB.WithContext(ctx).
		Where("created_at < ? AND status <> ?", cutoff, RunStatusRunning).
		Delete(&Run{})
	if tx.Error != nil {
		return 0, errors.Wrap(tx.Error, "delete expired runs")
	}
	return tx.RowsAffected, nil
}
