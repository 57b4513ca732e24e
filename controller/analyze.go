package controller

import (
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/network"
	"github.com/songquanpeng/contract-tester/middleware"
	"github.com/songquanpeng/contract-tester/monitor"
	"github.com/songquanpeng/contract-tester/probe/body"
	probe "github.com/songquanpeng/contract-tester/probe/model"
)

// AnalyzeEndpoint returns the requirements model of ?endpoint=, its selectable
// fields and its default body. Nothing is sent to the endpoint itself.
func AnalyzeEndpoint(c *gin.Context) {
	endpoint := strings.TrimSpace(c.Query("endpoint"))
	if endpoint == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("endpoint is required"))
		return
	}

	ctx := requestContext(c)
	if err := network.CheckTargetAllowed(ctx, endpoint, config.BlockedTargetSubnets); err != nil {
		middleware.AbortWithError(c, http.StatusForbidden, err)
		return
	}

	req, err := runPipeline.Analyze(ctx, endpoint)
	monitor.PrometheusMonitor.RecordAnalysis(err)
	if err != nil {
		middleware.AbortWithError(c, analysisStatus(err), err)
		return
	}

	data := gin.H{
		"requirements": req,
		"fields":       req.FieldNames(),
	}
	if defaultBody, err := body.Default(req); err != nil {
		data["default_body_error"] = err.Error()
	} else {
		data["default_body"] = defaultBody
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    data,
	})
}

func analysisStatus(err error) int {
	switch {
	case errors.Is(err, probe.ErrSchemaNotFound):
		return http.StatusNotFound
	case errors.Is(err, probe.ErrSchemaFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
