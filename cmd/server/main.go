package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/diegohenriquecode/employees-service-sub002/internal/api"
	"github.com/diegohenriquecode/employees-service-sub002/internal/awsutil"
	"github.com/diegohenriquecode/employees-service-sub002/internal/config"
	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/queue"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awsutil.Load(ctx, &cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	// Initialize stores and dispatcher
	store := database.NewStore(awsutil.NewDynamoDB(awsCfg, cfg.AWS.Endpoint))
	tasks := database.NewTaskStore(store, cfg.Tables.Tasks)

	objects, err := storage.NewS3Store(ctx, &cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	dispatcher := queue.NewDispatcher(awsutil.NewSNS(awsCfg, cfg.AWS.Endpoint), cfg.Queues.TaskTopicARN)

	// Initialize handlers and router
	handlers := api.NewHandlers(tasks, dispatcher, objects, cfg.Buckets.Protected)
	router := gin.Default()
	api.SetupRoutes(router, handlers, cfg.Auth.Secret)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
