package model

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/common"
)

const (
	sqliteBusyRetryAttempts  = 5
	sqliteBusyRetryBaseDelay = 20 * time.Millisecond
)

// runWithSQLiteBusyRetry retries write when SQLite reports a locked database.
// Background runs finish concurrently with API writes, so the single SQLite
// writer lock is contended. Other backends run write exactly once.
func runWithSQLiteBusyRetry(ctx context.Context, write func() error) error {
	err := write()
	if !common.UsingSQLite.Load() {
		return err
	}

	for attempt := 1; attempt <= sqliteBusyRetryAttempts && isSQLiteBusy(err); attempt++ {
		timer := time.NewTimer(time.Duration(attempt) * sqliteBusyRetryBaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(err, "context canceled while waiting for SQLite lock")
		case <-timer.C:
		}
		err = write()
	}

	if isSQLiteBusy(err) {
		return errors.Wrap(err, "SQLite remained busy after retries")
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "database table is locked", "database is busy"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
