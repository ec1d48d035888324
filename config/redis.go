package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is nil when REDIS_ADDR is not configured. The reminder scanner
// falls back to ledger-only deduplication in that case.
var Redis *redis.Client

func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("REDIS_ADDR not set, reminder dedup guard disabled")
		return
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	Redis = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: redis ping failed, dedup guard disabled: %v", err)
		Redis = nil
		return
	}
	log.Println("Redis connected successfully")
}

func CloseRedis() error {
	if Redis == nil {
		return nil
	}
	return Redis.Close()
}
