package common

import (
	"sync/atomic"

	"github.com/songquanpeng/contract-tester/common/config"
)

// Active run store driver, set once by model.InitDB.
var (
	UsingSQLite     atomic.Bool
	UsingPostgreSQL atomic.Bool
	UsingMySQL      atomic.Bool
)

var SQLitePath = config.SQLitePath
var SQLiteBusyTimeout = config.SQLiteBusyTimeout
