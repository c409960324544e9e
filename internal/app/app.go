package app

import (
	"context"
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/controller"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/service"
	"heartwise_backend/pkg/database"
	"heartwise_backend/pkg/logger"
	"heartwise_backend/pkg/monitoring"
	"heartwise_backend/pkg/security"
	"heartwise_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	tracer   *sdktrace.TracerProvider
}

type repositories struct {
	user       *repository.UserRepository
	program    *repository.ProgramRepository
	progress   *repository.ProgressRepository
	assessment *repository.AssessmentRepository
	coach      *repository.CoachRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	storage    *service.StorageService
	program    *service.ProgramService
	progress   *service.ProgressService
	ai         *service.AIService
	assessment *service.AssessmentService
	coach      *service.CoachService
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	program    *controller.ProgramController
	progress   *controller.ProgressController
	assessment *controller.AssessmentController
	coach      *controller.CoachController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		program:    repository.NewProgramRepository(db),
		progress:   repository.NewProgressRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		coach:      repository.NewCoachRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.program = service.NewProgramService(repos.program, rdb)
	s.progress = service.NewProgressService(repos.program, repos.progress, db)
	s.ai = service.NewAIService(cfg.AI)
	s.assessment = service.NewAssessmentService(repos.assessment, s.ai)
	s.coach = service.NewCoachService(repos.coach, repos.program, repos.progress, repos.assessment, s.ai, db)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		user:       controller.NewUserController(s.user, s.storage),
		program:    controller.NewProgramController(s.program),
		progress:   controller.NewProgressController(s.progress, s.coach),
		assessment: controller.NewAssessmentController(s.assessment),
		coach:      controller.NewCoachController(s.coach),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OnConfigReload 配置热更新时刷新 AI 服务凭据，其余配置重启生效
func (a *App) OnConfigReload(cfg *config.Config) {
	if a.services != nil && a.services.ai != nil {
		a.services.ai.UpdateConfig(cfg.AI)
		logger.Log.Info("AI config reloaded")
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis 仅用于目录缓存，连不上时降级为直查数据库
		logger.Log.Warn("Redis unavailable, catalog caching disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("heartwise-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	logger.Log.Sync()

	log.Println("Server exiting")
}
