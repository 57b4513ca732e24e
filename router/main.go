package router

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/logger"
	"github.com/songquanpeng/contract-tester/controller"
	"github.com/songquanpeng/contract-tester/middleware"
)

// NewServer builds the gin engine with its middleware stack and routes.
func NewServer() *gin.Engine {
	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		middleware.PanicRecover(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logger.LevelName()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
		middleware.RequestId(),
		middleware.CORS(),
		middleware.GracefulTracker(),
	)

	SetRouter(server)
	return server
}

func SetRouter(server *gin.Engine) {
	if config.EnablePrometheusMetrics {
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	server.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	apiRouter := server.Group("/api")
	apiRouter.GET("/status", controller.GetStatus)
	apiRouter.GET("/analyze", gzip.Gzip(gzip.DefaultCompression), controller.AnalyzeEndpoint)

	runRouter := apiRouter.Group("/runs")
	{
		runRouter.POST("", controller.StartRun)
		// the websocket route must not be wrapped by gzip
		runRouter.GET("/:id/events", controller.GetRunEvents)

		compressed := runRouter.Group("", gzip.Gzip(gzip.DefaultCompression))
		compressed.GET("", controller.GetRuns)
		compressed.GET("/:id", controller.GetRun)
	}
}
