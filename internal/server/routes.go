package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"
	"github.com/ulule/limiter/v3"
	limiterGin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/openmirror/drivebox/internal/server/storage"
	"github.com/openmirror/drivebox/internal/version"
)

// generous per-IP budget; just keeps a misbehaving client from hammering
// the store through a public tunnel
var requestRate = limiter.Rate{Period: time.Second, Limit: 100}

func SetupRoutes(store *storage.Storage) http.Handler {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20 // 8 MiB

	h := NewHandler(store)

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(cors.Default())
	r.Use(limiterGin.NewMiddleware(limiter.New(memory.NewStore(), requestRate)))

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	r.GET("/files", h.ListFiles)
	r.POST("/upload/*path", h.Upload)
	r.GET("/download/*path", h.Download)
	r.DELETE("/delete/*path", h.Delete)

	return r
}

func IndexHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"service": "drivebox",
		"version": version.Version,
	})
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{"status": "ok"})
}
