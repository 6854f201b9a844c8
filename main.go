package main

import (
	"log"
	"os"

	"cortexchat/internal/ai"
	"cortexchat/internal/api"
	"cortexchat/internal/config"
	"cortexchat/internal/cortex"
	"cortexchat/internal/history"
	"cortexchat/internal/redis"
	"cortexchat/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("CORTEXCHAT_CONFIG")
	cfg, err := config.NewLive(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	snap := cfg.Snapshot()

	dbType := os.Getenv("CORTEXCHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, snap)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: cortex_chat_messages, channel_timeline
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if snap.Redis.Host != "" {
		rdb, err = redis.NewRedisClient(snap)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Printf("redis not configured, transcript caching disabled")
	}

	var (
		sessionCache cortex.TranscriptCache
		apiCache     api.TranscriptCache
	)
	if rdb != nil {
		sessionCache = rdb
		apiCache = rdb
	}

	store := cortex.NewStore(db)
	timeline := history.NewService(db)
	tools := ai.BuildTools(snap.Runtime.Capabilities, snap.Runtime.FileRoot)
	session := cortex.NewSession(cfg, store, timeline, sessionCache, tools, nil)

	handlers := api.NewHandler(cfg, session, timeline, apiCache)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := snap.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
