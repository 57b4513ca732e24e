package common

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/logger"
)

var (
	Port         = flag.Int("port", 3000, "the listening port")
	PrintVersion = flag.Bool("version", false, "print version and exit")
	LogDir       = flag.String("log-dir", "./logs", "specify the log directory")
)

// Version is stamped at build time with -ldflags.
var Version = "v0.0.0"

var StartTime = time.Now().Unix()

// Init parses server flags and prepares the log directory.
func Init() {
	flag.Parse()

	if *LogDir == "" {
		return
	}

	expanded := ExpandPath(*LogDir)
	lg := logger.Logger.With(zap.String("log_dir", expanded))
	lg.Debug("starting to set log dir")

	expanded, err := filepath.Abs(expanded)
	if err != nil {
		lg.Fatal("failed to get absolute log dir", zap.Error(err))
	}

	if err = os.MkdirAll(expanded, 0o777); err != nil {
		lg.Fatal("failed to create log dir", zap.Error(err))
	}

	lg.Info("set log dir", zap.String("log_dir", expanded))
	logger.LogDir = expanded
	*LogDir = expanded
}
