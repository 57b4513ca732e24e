// Command probe generates and runs contract tests against one HTTP endpoint
// and prints the summary and failure digest.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	_ "github.com/joho/godotenv/autoload"

	cfg "github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/probe/executor"
	"github.com/songquanpeng/contract-tester/probe/pipeline"
	"github.com/songquanpeng/contract-tester/probe/report"
)

// errTestsFailed makes the exit status reflect failing cases.
var errTestsFailed = errors.New("tests failed")

func main() {
	level := glog.LevelInfo
	if cfg.DebugEnabled {
		level = glog.LevelDebug
	}
	logger, err := glog.NewConsoleWithName("contract-probe", level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %+v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, pipeline.NewFromConfig(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errTestsFailed) {
			logger.Warn("contract test finished with failures", zap.Error(err))
			os.Exit(2)
		}
		logger.Error("contract test failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("all tests passed")
}

func run(ctx context.Context, logger glog.Logger, p *pipeline.Pipeline, args []string, out io.Writer) error {
	c, testPlan, err := loadConfig(args, os.Stderr)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	opts := pipeline.Options{
		Fields:        c.Fields,
		Seed:          c.Seed,
		DisableOracle: c.NoOracle,
	}.ApplyPlan(testPlan)
	opts.Observer = progress(logger)

	logger.Info("starting contract test",
		zap.String("endpoint", c.Endpoint),
		zap.Strings("fields", opts.Fields),
		zap.Bool("oracle", !opts.DisableOracle),
		zap.Uint64("seed", opts.Seed),
	)

	res, err := p.Run(gmw.SetLogger(ctx, logger), c.Endpoint, opts)
	if err != nil {
		return errors.Wrapf(err, "run contract test for %s", c.Endpoint)
	}

	fmt.Fprintf(out, "Endpoint: %s\nFields:   %v\n\n", res.Endpoint, res.SelectedFields)
	report.Render(out, res.TestReport)
	for _, d := range res.Degradations {
		logger.Warn("stage degraded", zap.String("stage", d.Stage), zap.String("error", d.Error), zap.Int("dropped", d.Dropped))
	}

	path, err := report.WriteJSON(c.OutDir, time.Now(), res)
	if err != nil {
		return errors.Wrap(err, "save results")
	}
	logger.Info("results saved", zap.String("path", path))

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "run interrupted")
	}
	if s := res.TestReport.Summary; s.FailedTests > 0 {
		return errors.Wrapf(errTestsFailed, "%d of %d tests failed", s.FailedTests, s.TotalTests)
	}
	return nil
}

// progress logs a progress line every tenth case and at the end.
func progress(logger glog.Logger) executor.Observer {
	return func(ev executor.Event) {
		if ev.Index%10 == 0 || ev.Index == ev.Total {
			logger.Info("progress", zap.Int("executed", ev.Index), zap.Int("total", ev.Total))
		}
	}
}
