package platform

import (
	"fmt"
	"log"

	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection initializes a GORM database connection and migrates the
// lesson tables.
func NewDBConnection(cfg Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying SQL DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	log.Println("Database connected successfully")
	return db
}

// NewRedisClient initializes and returns a Redis client
func NewRedisClient(cfg Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	log.Println("Redis client initialized")
	return rdb
}

// NewBroker returns the task broker selected by QUEUE_BACKEND.
func NewBroker(cfg Config, rdb *redis.Client) (tasks.Broker, error) {
	switch cfg.QueueBackend {
	case QueueBackendRabbitMQ:
		broker, err := tasks.NewRabbitBroker(cfg.RabbitMQURL, cfg.WorkerConcurrency)
		if err != nil {
			return nil, err
		}
		log.Println("RabbitMQ broker connected")
		return broker, nil
	case QueueBackendRedis, "":
		return tasks.NewRedisBroker(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.QueueBackend)
	}
}
