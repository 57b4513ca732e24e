package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common"
	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/graceful"
)

func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"version":        common.Version,
			"start_time":     common.StartTime,
			"oracle_enabled": config.OracleEnabled && config.OracleAPIKey != "",
			"oracle_model":   config.OracleModel,
			"running_runs":   graceful.Running(),
			"draining":       graceful.IsDraining(),
		},
	})
}
