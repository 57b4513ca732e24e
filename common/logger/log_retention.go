package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// RetentionTarget names a directory and the file name shape the cleaner may delete from it.
type RetentionTarget struct {
	Dir    string
	Prefix string
	Suffix string
}

// StartRetentionCleaner launches a background worker that deletes files older than retentionDays
// from every target. The cleanup runs immediately and then once every 24 hours until ctx is cancelled.
func StartRetentionCleaner(ctx context.Context, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		Logger.Debug("file retention disabled", zap.Int("retention_days", retentionDays))
		return
	}

	active := make([]RetentionTarget, 0, len(targets))
	for _, target := range targets {
		if strings.TrimSpace(target.Dir) == "" {
			Logger.Warn("retention target without directory skipped", zap.String("suffix", target.Suffix))
			continue
		}
		active = append(active, target)
	}
	if len(active) == 0 {
		return
	}

	cleanup := func() {
		for _, target := range active {
			if err := deleteExpiredFiles(retentionDays, target); err != nil {
				Logger.Warn("retention cleanup failed", zap.String("dir", target.Dir), zap.Error(err))
			}
		}
	}

	cleanup()

	ticker := time.NewTicker(24 * time.Hour)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				Logger.Info("retention cleaner stopped", zap.Error(ctx.Err()))
				return
			case <-ticker.C:
				cleanup()
			}
		}
	}()

	Logger.Info("retention cleaner started", zap.Int("retention_days", retentionDays), zap.Int("targets", len(active)))
}

// deleteExpiredFiles removes matching files older than the retention window from target.Dir.
func deleteExpiredFiles(retentionDays int, target RetentionTarget) error {
	entries, err := os.ReadDir(target.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read retention directory")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, strings.ToLower(target.Suffix)) || !strings.HasPrefix(name, target.Prefix) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			Logger.Warn("skip file without metadata", zap.String("path", filepath.Join(target.Dir, name)), zap.Error(infoErr))
			continue
		}

		modTime := info.ModTime().UTC()
		if !modTime.Before(cutoff) {
			continue
		}

		fullPath := filepath.Join(target.Dir, name)
		if removeErr := os.Remove(fullPath); removeErr != nil {
			Logger.Warn("failed to delete expired file", zap.String("path", fullPath), zap.Error(removeErr))
			continue
		}

		Logger.Info("deleted expired file", zap.String("path", fullPath), zap.Time("modified_at", modTime))
	}

	return nil
}
