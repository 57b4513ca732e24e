package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/songquanpeng/contract-tester/common"
	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/graceful"
	"github.com/songquanpeng/contract-tester/common/logger"
	"github.com/songquanpeng/contract-tester/controller"
	"github.com/songquanpeng/contract-tester/model"
	"github.com/songquanpeng/contract-tester/monitor"
	"github.com/songquanpeng/contract-tester/probe/pipeline"
	"github.com/songquanpeng/contract-tester/probe/report"
	"github.com/songquanpeng/contract-tester/router"
)

// cancelGrace is how long cancelled runs get to record their partial results.
const cancelGrace = 10 * time.Second

func main() {
	common.Init()
	if *common.PrintVersion {
		fmt.Println(common.Version)
		return
	}
	logger.SetupLogger()
	logger.Logger.Info("contract tester started", zap.String("version", common.Version))

	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := common.InitRedisClient(); err != nil {
		logger.Logger.Fatal("failed to initialize Redis", zap.Error(err))
	}

	model.InitDB()
	defer func() {
		if err := model.CloseDB(); err != nil {
			logger.Logger.Error("failed to close database", zap.Error(err))
		}
	}()
	if n, err := model.FailInterruptedRuns(ctx); err != nil {
		logger.Logger.Error("failed to close interrupted runs", zap.Error(err))
	} else if n > 0 {
		logger.Logger.Warn("marked interrupted runs as failed", zap.Int64("runs", n))
	}

	if config.EnablePrometheusMetrics {
		if err := monitor.InitPrometheusMonitoring(common.Version, time.Unix(common.StartTime, 0)); err != nil {
			logger.Logger.Fatal("failed to initialize Prometheus monitoring", zap.Error(err))
		}
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}

	controller.SetPipeline(pipeline.NewFromConfig())

	logger.StartRetentionCleaner(ctx, config.RetentionDays,
		logger.RetentionTarget{Dir: logger.LogDir, Suffix: ".log"},
		logger.RetentionTarget{Dir: common.ExpandPath(config.ResultsDir), Prefix: report.ResultFilePrefix, Suffix: report.ResultFileSuffix},
	)
	model.StartRunRetentionCleaner(ctx, config.RetentionDays)

	port := config.ServerPort
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router.NewServer(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g errgroup.Group
	g.Go(func() error {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return errors.Wrap(err, "serve http")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return shutdown(srv)
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Logger.Info("server stopped")
}

// shutdown stops accepting runs, waits for running ones and cancels the stragglers.
func shutdown(srv *http.Server) error {
	logger.Logger.Info("shutting down", zap.Int64("running_runs", graceful.Running()))
	graceful.SetDraining(true)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(ctx); err != nil {
		shutdownErr = errors.Wrap(err, "shutdown http server")
	}
	if err := graceful.Drain(ctx); err != nil {
		logger.Logger.Warn("runs still active after shutdown timeout, cancelling",
			zap.Int64("running_runs", graceful.Running()))
		graceful.CancelAll()

		graceCtx, graceCancel := context.WithTimeout(context.Background(), cancelGrace)
		defer graceCancel()
		if err := graceful.Drain(graceCtx); err != nil && shutdownErr == nil {
			shutdownErr = errors.Wrap(err, "drain runs")
		}
	}
	return shutdownErr
}
