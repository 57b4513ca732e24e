package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialized(t *testing.T) {
	require.NotNil(t, Logger)
	require.NotEmpty(t, LevelName())
	Logger.Info("test log message")
}

func TestSetupLoggerWritesToFile(t *testing.T) {
	setupLogOnce = sync.Once{}
	dir := t.TempDir()

	originalDir := LogDir
	originalWriter := gin.DefaultWriter
	originalErrWriter := gin.DefaultErrorWriter
	t.Cleanup(func() {
		LogDir = originalDir
		gin.DefaultWriter = originalWriter
		gin.DefaultErrorWriter = originalErrWriter
		setupLogOnce = sync.Once{}
	})

	LogDir = dir
	SetupLogger()

	_, err := gin.DefaultWriter.Write([]byte("hello log file\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), "contract-tester-"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(content), "hello log file")
}

func TestStartRetentionCleaner(t *testing.T) {
	dir := t.TempDir()

	oldLog := filepath.Join(dir, "contract-tester-20200101.log")
	oldResult := filepath.Join(dir, "api_test_results_20200101_000000.json")
	oldOther := filepath.Join(dir, "notes.json")
	freshLog := filepath.Join(dir, "contract-tester.log")
	for _, p := range []string{oldLog, oldResult, oldOther, freshLog} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	past := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{oldLog, oldResult, oldOther} {
		require.NoError(t, os.Chtimes(p, past, past))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartRetentionCleaner(ctx, 7,
		RetentionTarget{Dir: dir, Suffix: ".log"},
		RetentionTarget{Dir: dir, Prefix: "api_test_results_", Suffix: ".json"},
	)

	_, err := os.Stat(oldLog)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldResult)
	require.True(t, os.IsNotExist(err))

	_, err = os.Stat(oldOther)
	require.NoError(t, err, "files outside the target shape must survive")
	_, err = os.Stat(freshLog)
	require.NoError(t, err)
}

func TestStartRetentionCleanerDisabled(t *testing.T) {
	dir := t.TempDir()
	oldLog := filepath.Join(dir, "contract-tester-20200101.log")
	require.NoError(t, os.WriteFile(oldLog, []byte("x"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldLog, past, past))

	StartRetentionCleaner(context.Background(), 0, RetentionTarget{Dir: dir, Suffix: ".log"})

	_, err := os.Stat(oldLog)
	require.NoError(t, err)
}
