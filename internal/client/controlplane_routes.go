package client

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/vaultdrive/vaultdrive/internal/client/handlers"
	"github.com/vaultdrive/vaultdrive/internal/client/middleware"
	"github.com/vaultdrive/vaultdrive/internal/version"
)

func SetupRoutes(c *Client, config *ControlPlaneConfig) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	rateLimitStore := memory.NewStore()
	rateLimiter := limiter.New(rateLimitStore, limiter.Rate{
		Period: 1 * time.Second,
		Limit:  20,
	})

	syncH := handlers.NewSyncHandler(c)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(mgin.NewMiddleware(rateLimiter))

	r.GET("/", indexHandler)
	r.GET("/health", healthHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(middleware.TokenAuthConfig{Token: config.AuthToken}))
	{
		v1.GET("/status", syncH.Status)

		v1Sync := v1.Group("/sync")
		{
			v1Sync.GET("/journal", syncH.Journal)
			v1Sync.POST("/push", syncH.Push)
			v1Sync.POST("/pull", syncH.Pull)
			v1Sync.POST("/undo", syncH.Undo)
		}
	}

	return r
}

func indexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":     version.AppName,
		"version": version.Version,
	})
}

func healthHandler(c *gin.Context) {
	health := gin.H{
		"status": "ok",
		"pid":    os.Getpid(),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			health["rssBytes"] = mem.RSS
		}
		if created, err := proc.CreateTime(); err == nil {
			health["uptimeSeconds"] = (time.Now().UnixMilli() - created) / 1000
		}
	}
	c.JSON(http.StatusOK, health)
}
