// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/linkvault/pkg/api"
	"github.com/yeisme/linkvault/pkg/cache"
	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/jobs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/storage"
	"github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/metrics"
	"github.com/yeisme/linkvault/pkg/middleware"
	"github.com/yeisme/linkvault/pkg/scheduler"
	"github.com/yeisme/linkvault/pkg/tracing"
)

type App struct {
	Engine    *gin.Engine
	Scheduler *scheduler.Scheduler
	config    *configs.AppConfig
}

func NewApp(configPath string) *App {
	ctx := contextPkg.Background()
	engine := gin.New()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	// 初始化追踪
	config := configs.GetConfig()
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	// 同步表结构
	if dbClient := manager.GetDBClient(); dbClient != nil {
		if err := dbClient.GetDB().AutoMigrate(model.AllModels()...); err != nil {
			fmt.Printf("Error migrating database: %v\n", err)
			os.Exit(1)
		}
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	// 定时任务：过期链接停用、聚合计数对账
	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterCronJobs(sched, manager); err != nil {
		fmt.Printf("Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	sched.Start()

	engine.Use(
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.CORSMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
		middleware.RoleMiddleware(),
	)

	// 可选中间件：按配置开启
	if config.Auth.Enabled {
		engine.Use(middleware.AuthMiddleware(config.Auth))
	}

	if config.RateLimit.Enabled {
		engine.Use(middleware.RateLimitMiddleware(config.RateLimit))
	}

	if config.CircuitBreaker.Enabled {
		engine.Use(middleware.CircuitBreakerMiddleware(config.CircuitBreaker))
	}

	// KV 可用时为 GET 请求挂响应缓存
	if kvClient := manager.GetKVClient(); kvClient != nil {
		engine.Use(middleware.CacheMiddleware(middleware.DefaultCacheConfig(cache.NewCache(kvClient))))
	}

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:    engine,
		Scheduler: sched,
		config:    config,
	}
}

func (a *App) Run() error {
	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}
