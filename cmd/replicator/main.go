package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/diegohenriquecode/employees-service-sub002/internal/awsutil"
	"github.com/diegohenriquecode/employees-service-sub002/internal/config"
	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/queue"
	"github.com/diegohenriquecode/employees-service-sub002/internal/services"
	"github.com/diegohenriquecode/employees-service-sub002/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsutil.Load(ctx, &cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	store := database.NewStore(awsutil.NewDynamoDB(awsCfg, cfg.AWS.Endpoint))
	accounts := database.NewAccountStore(store, cfg.Tables.Accounts)

	objects, err := storage.NewS3Store(ctx, &cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	alerter := queue.NewAlerter(awsutil.NewSNS(awsCfg, cfg.AWS.Endpoint), cfg.Queues.AlertTopicARN)

	replicator := services.NewReplicator(accounts, store, objects, cfg.Buckets.Protected, cfg.Buckets.Public)
	consumer := queue.NewConsumer(awsutil.NewSQS(awsCfg, cfg.AWS.Endpoint), cfg.Queues.DemoQueueURL, replicator.Handle, alerter.Alert, "replicator")

	log.Printf("Starting demo replicator consumer")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Consumer stopped: %v", err)
	}
}
