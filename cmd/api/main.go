// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/drewmudry/lessonreel-api/auth"
	"github.com/drewmudry/lessonreel-api/internal/platform"
	"github.com/drewmudry/lessonreel-api/storage"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/drewmudry/lessonreel-api/videos"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type Server struct {
	Config platform.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Broker tasks.Broker
	Router *gin.Engine
}

func NewServer(cfg platform.Config) (*Server, error) {
	// Use the shared connection initializers
	db := platform.NewDBConnection(cfg)
	rdb := platform.NewRedisClient(cfg)
	broker, err := platform.NewBroker(cfg, rdb)
	if err != nil {
		return nil, err
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	server := &Server{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Broker: broker,
		Router: router,
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		redisStatus := "connected"
		if err := s.Redis.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "unreachable"
		}

		c.JSON(200, gin.H{
			"status":   "healthy",
			"database": "connected",
			"redis":    redisStatus,
		})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Lessonreel API v1"})
	})

	store := storage.NewLocalStore(s.Config.OutputDir)
	videoHandler := videos.NewHandler(s.DB, s.Broker, tasks.NewRedisStatusBus(s.Redis), store)

	// Protected routes that require authentication
	protected := s.Router.Group("")
	protected.Use(auth.AuthMiddleware(s.Config.JWTSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"user_id": c.GetUint("user_id"),
				"email":   c.GetString("email"),
			})
		})
	}

	videoHandler.RegisterRoutes(&s.Router.RouterGroup, protected)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.Config.Port,
		Handler: s.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", s.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() {
	if err := s.Broker.Close(); err != nil {
		log.Printf("Error closing broker: %v", err)
	}
	if err := s.Redis.Close(); err != nil {
		log.Printf("Error closing redis: %v", err)
	}
}

func main() {
	cfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
