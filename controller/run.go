package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/graceful"
	"github.com/songquanpeng/contract-tester/common/helper"
	"github.com/songquanpeng/contract-tester/common/network"
	"github.com/songquanpeng/contract-tester/middleware"
	"github.com/songquanpeng/contract-tester/model"
	"github.com/songquanpeng/contract-tester/monitor"
	"github.com/songquanpeng/contract-tester/probe/executor"
	probe "github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/pipeline"
	"github.com/songquanpeng/contract-tester/probe/plan"
)

const saveRunTimeout = 30 * time.Second

var (
	runPipeline = pipeline.New()
	hub         = newEventHub()
)

// SetPipeline replaces the pipeline used by API runs.
func SetPipeline(p *pipeline.Pipeline) {
	runPipeline = p
}

type StartRunRequest struct {
	Endpoint string `json:"endpoint" binding:"omitempty,url"`
	// Fields is a field selection: names, 1-based indices or "all".
	Fields        []string `json:"fields"`
	Seed          uint64   `json:"seed"`
	DisableOracle bool     `json:"disable_oracle"`
	// Plan is an inline YAML test plan.
	Plan string `json:"plan"`
}

// requestContext is the request context with the request id attached to its logger.
func requestContext(c *gin.Context) context.Context {
	lg := gmw.GetLogger(c).With(zap.String("request_id", c.GetString(helper.RequestIdKey)))
	return gmw.SetLogger(gmw.Ctx(c), lg)
}

// StartRun validates the request, records a running run and executes it in the background.
func StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid run request"))
		return
	}

	opts := pipeline.Options{
		Fields:        req.Fields,
		Seed:          req.Seed,
		DisableOracle: req.DisableOracle,
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if strings.TrimSpace(req.Plan) != "" {
		p, err := plan.Parse([]byte(req.Plan))
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, err)
			return
		}
		opts = opts.ApplyPlan(p)
		if endpoint == "" {
			endpoint = p.Endpoint
		}
	}
	if endpoint == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("endpoint is required"))
		return
	}

	ctx := requestContext(c)
	if err := network.CheckTargetAllowed(ctx, endpoint, config.BlockedTargetSubnets); err != nil {
		middleware.AbortWithError(c, http.StatusForbidden, err)
		return
	}

	run := model.NewRun(endpoint, opts.Fields)
	if err := model.CreateRun(ctx, run); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}

	accepted := *run
	lg := gmw.GetLogger(ctx).With(zap.String("run_id", run.Id), zap.String("endpoint", endpoint))
	lg.Info("run accepted", zap.Strings("fields", opts.Fields))
	graceful.Go(gmw.SetLogger(context.Background(), lg), "run:"+run.Id, func(ctx context.Context) {
		executeRun(ctx, run, opts)
	})

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "",
		"data":    accepted,
	})
}

// executeRun runs the pipeline for run, streams case events and persists the outcome.
func executeRun(ctx context.Context, run *model.Run, opts pipeline.Options) {
	lg := gmw.GetLogger(ctx)
	finished := monitor.PrometheusMonitor.RunStarted()

	opts.Observer = caseObserver(run.Id, monitor.PrometheusMonitor)

	res, runErr := runPipeline.Run(ctx, run.Endpoint, opts)
	if runErr != nil {
		lg.Warn("run failed", zap.Error(runErr))
	}
	if err := run.Finish(res, runErr, time.Now()); err != nil {
		lg.Error("failed to record run outcome", zap.Error(err))
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	}
	if res != nil {
		monitor.PrometheusMonitor.RecordDegradations(res.Degradations)
	}

	// the run context may already be cancelled by shutdown
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveRunTimeout)
	defer cancel()
	if err := model.SaveRun(saveCtx, run); err != nil {
		lg.Error("failed to save run", zap.Error(err))
	}

	finished(run.Status)
	lg.Info("run finished",
		zap.String("status", run.Status),
		zap.Int("total_tests", run.TotalTests),
		zap.Int("failed_tests", run.FailedTests),
		zap.String("success_rate", run.SuccessRate))
	hub.publish(run.Id, EventFinished, run)
	hub.closeRun(run.Id)
}

// caseObserver records every executed case in m and streams it to the run's subscribers.
func caseObserver(runId string, m *monitor.Metrics) executor.Observer {
	record := m.Observer()
	return func(ev executor.Event) {
		record(ev)
		hub.publish(runId, EventCase, caseEvent(ev))
	}
}

// CaseEvent is the payload of a "case" event.
type CaseEvent struct {
	Index            int                 `json:"index"`
	Total            int                 `json:"total"`
	Name             string              `json:"name"`
	Method           string              `json:"method"`
	Source           probe.CaseSource    `json:"source,omitempty"`
	ExpectedStatus   int                 `json:"expected_status_code"`
	ActualStatusCode *probe.ActualStatus `json:"actual_status_code,omitempty"`
	Passed           bool                `json:"passed"`
	Error            string              `json:"error,omitempty"`
	DurationMs       int64               `json:"duration_ms"`
}

func caseEvent(ev executor.Event) CaseEvent {
	out := CaseEvent{Index: ev.Index, Total: ev.Total}
	if c := ev.Case; c != nil {
		out.Name = c.Name
		out.Method = c.Method
		out.Source = c.Source
		out.ExpectedStatus = c.ExpectedStatusCode
		out.ActualStatusCode = c.ActualStatusCode
		out.Passed = c.Passed()
		if c.TestResult != nil {
			out.Error = c.TestResult.Error
			out.DurationMs = c.TestResult.Duration.Milliseconds()
		}
	}
	return out
}

// GetRuns lists runs newest first: ?p=0&size=20&status=completed.
func GetRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("p"))
	size, _ := strconv.Atoi(c.Query("size"))
	runs, total, err := model.ListRuns(requestContext(c), page, size, c.Query("status"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    runs,
		"total":   total,
	})
}

// GetRun returns a run with its full result document once finished.
func GetRun(c *gin.Context) {
	run, err := model.GetRun(requestContext(c), c.Param("id"))
	if err != nil {
		abortRunLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"run":    run,
			"result": run.Document(),
		},
	})
}

func abortRunLookup(c *gin.Context, err error) {
	if errors.Is(err, model.ErrRunNotFound) {
		middleware.AbortWithError(c, http.StatusNotFound, err)
		return
	}
	middleware.AbortWithError(c, http.StatusInternalServerError, err)
}
