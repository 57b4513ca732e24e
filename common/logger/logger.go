package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/config"
)

var (
	Logger       glog.Logger
	LogDir       string
	logLevel     = glog.LevelInfo
	setupLogOnce sync.Once
	initLogOnce  sync.Once
)

// init initializes the logger automatically when the package is imported
func init() {
	initLogger()
}

func initLogger() {
	initLogOnce.Do(func() {
		if config.DebugEnabled {
			logLevel = glog.LevelDebug
		}

		var err error
		Logger, err = glog.NewConsoleWithName("contract-tester", logLevel)
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// LevelName returns the configured log level, e.g. for the gin access logger.
func LevelName() string {
	return logLevel.String()
}

// SetupLogger mirrors gin output into a daily log file when LogDir is set.
func SetupLogger() {
	setupLogOnce.Do(func() {
		if LogDir == "" {
			return
		}
		logPath := filepath.Join(LogDir, fmt.Sprintf("contract-tester-%s.log", time.Now().Format("20060102")))
		fd, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal("failed to open log file")
		}
		gin.DefaultWriter = io.MultiWriter(os.Stdout, fd)
		gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, fd)
	})
}
