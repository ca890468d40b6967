// Package bootstrap loads configuration and wires every component of the
// collaboration engine into a runnable App.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collab-engine/internal/docstore"
	httpHandler "collab-engine/internal/handler/http"
	wsHandler "collab-engine/internal/handler/websocket"
	"collab-engine/internal/hub"
	gormpersistence "collab-engine/internal/infra/persistence/gorm"
	"collab-engine/internal/infra/setup"
	redisstate "collab-engine/internal/infra/state/redis"
	"collab-engine/internal/middleware"
	"collab-engine/internal/service"
	"collab-engine/internal/tasks"
	"collab-engine/internal/worker"
)

// Config holds everything loaded from the environment.
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	ServerPort      string
	LogLevel        string
	AppEnv          string
	KeyPrefix       string
	RateLimitMax    int
	RateLimitWindow time.Duration

	ReplayWindow      int
	PresenceTTL       time.Duration
	IdleRoomRetention time.Duration
}

// LoadConfig reads configuration from a .env file (if present) and the
// environment. Only the secrets are mandatory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBName:        getEnv("DB_NAME", "collab_db"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AppEnv:        getEnv("APP_ENV", "development"),
		KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "collab:"),
	}
	if cfg.DBUser == "" || cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_USER and DB_PASSWORD must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", 300)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.ReplayWindow = getEnvInt("REPLAY_WINDOW", docstore.DefaultWindow)
	cfg.PresenceTTL = getEnvDuration("PRESENCE_TTL", service.DefaultPresenceTTL)
	cfg.IdleRoomRetention = getEnvDuration("IDLE_ROOM_RETENTION", worker.DefaultIdleRoomRetention)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// App is the assembled application.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	emitter        *worker.QueueAuditEmitter
	scheduler      *asynq.Scheduler
	redisClientOpt asynq.RedisClientOpt
}

// NewApp loads configuration and wires every component.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded")

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("migrate DB: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("init Redis: %w", err)
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// Repositories.
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)
	opRepo := gormpersistence.NewGormOperationRepository(db)
	fileRepo := gormpersistence.NewGormFileRepository(db)
	snapshotRepo := gormpersistence.NewGormSnapshotRepository(db)
	auditRepo := gormpersistence.NewGormAuditRepository(db)
	presenceRepo := redisstate.NewRedisPresenceRepository(redisClient, cfg.KeyPrefix)
	rateLimiter := redisstate.NewRateLimiter(redisClient, cfg.KeyPrefix)

	// Core document state and services.
	store := docstore.NewStore(fileRepo, opRepo, cfg.ReplayWindow)
	emitter := worker.NewQueueAuditEmitter(asynqClient)
	roomService := service.NewRoomService(roomRepo, chatRepo, fileRepo)
	chatService := service.NewChatService(chatRepo)
	presenceService := service.NewPresenceService(presenceRepo, cfg.PresenceTTL)
	collabService := service.NewCollaborationService(store, roomService, emitter)
	snapshotService := service.NewSnapshotService(snapshotRepo, store)

	hubInstance := hub.NewHub(collabService, presenceService, chatService, roomService)

	// Handlers.
	roomHandler := httpHandler.NewRoomHandler(roomService, hubInstance)
	chatHandler := httpHandler.NewChatHandler(chatService, hubInstance)
	editHandler := httpHandler.NewEditHandler(collabService, hubInstance)
	snapshotHandler := httpHandler.NewSnapshotHandler(snapshotService)
	statsHandler := httpHandler.NewStatsHandler(hubInstance, fileRepo)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, roomService)

	// Worker side.
	auditHandler := worker.NewAuditEventHandler(auditRepo)
	houseHandler := worker.NewHousekeepingHandler(presenceService, roomRepo, hubInstance, cfg.IdleRoomRetention)
	workerServer := worker.NewWorkerServer(redisClientOpt, auditHandler, houseHandler, log)

	// Router.
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(rateLimiter, cfg.RateLimitMax, cfg.RateLimitWindow))

	router.GET("/healthz", statsHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/stats", statsHandler.Stats)
		api.GET("/projects/:projectId/rooms", roomHandler.ListProjectRooms)

		rooms := api.Group("/rooms")
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:id", roomHandler.GetRoom)
			rooms.GET("/:id/stats", roomHandler.RoomStats)
			rooms.POST("/:id/messages", chatHandler.Send)
			rooms.GET("/:id/messages", chatHandler.History)
			rooms.DELETE("/:id/messages/:messageId", chatHandler.Delete)
			rooms.POST("/:id/snapshots", snapshotHandler.Create)
			rooms.GET("/:id/snapshots", snapshotHandler.List)
		}

		api.GET("/snapshots/:snapshotId", snapshotHandler.Get)
		api.POST("/files/:fileId/operations", editHandler.Apply)
		api.GET("/files/:fileId", editHandler.FileState)
	}

	ws := router.Group("/ws", middleware.Auth(cfg.JWTSecret))
	{
		ws.GET("/rooms/:roomId", websocketHandler.HandleConnection)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		emitter:        emitter,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start launches the worker, the scheduler, and the HTTP server.
func (a *App) Start() {
	go a.AsynqServer.Start()
	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

func (a *App) registerPeriodicTasks() {
	a.scheduler = asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	schedule := "@every 5m"
	entryID, err := a.scheduler.Register(schedule, tasks.NewHousekeepingTask())
	if err != nil {
		a.Log.Errorf("Could not register housekeeping task: %v", err)
	} else {
		a.Log.Infof("Housekeeping task registered with schedule %q (entry %s)", schedule, entryID)
	}

	go func() {
		if err := a.scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler failed: %v", err)
		}
	}()
}

// Shutdown stops components in dependency order: no new inbound work, drain
// queues, then close connections.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.emitter != nil {
		a.emitter.Close()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete")
}

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()
		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	allowedOrigin := getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
