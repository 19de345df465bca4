package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/diegohenriquecode/employees-service-sub002/internal/awsutil"
	"github.com/diegohenriquecode/employees-service-sub002/internal/config"
	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/domain"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
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

	// Initialize stores
	store := database.NewStore(awsutil.NewDynamoDB(awsCfg, cfg.AWS.Endpoint))
	tasks := database.NewTaskStore(store, cfg.Tables.Tasks)
	accounts := database.NewAccountStore(store, cfg.Tables.Accounts)

	objects, err := storage.NewS3Store(ctx, &cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	alerter := queue.NewAlerter(awsutil.NewSNS(awsCfg, cfg.AWS.Endpoint), cfg.Queues.AlertTopicARN)
	sqsClient := awsutil.NewSQS(awsCfg, cfg.AWS.Endpoint)

	// Registries are resolved once at startup; the wider application
	// registers additional report generators and entity creators here.
	generators := services.GeneratorRegistry{
		models.ReportTypeFeedback: domain.NewFeedbackGenerator(store, "Feedbacks"),
	}
	creators := services.CreatorRegistry{
		models.TaskTypeImportRanks:    domain.NewRankCreator(store, "Ranks"),
		models.TaskTypeImportUsers:    domain.NewUserCreator(store, "Users"),
		models.TaskTypeImportManagers: domain.NewManagerCreator(store, "Users"),
	}

	reportWorker := services.NewReportWorker(tasks, accounts, objects, cfg.Buckets.Protected, generators)
	importWorker := services.NewImportWorker(tasks, objects, cfg.Buckets.Protected, creators)

	consumers := []*queue.Consumer{
		queue.NewConsumer(sqsClient, cfg.Queues.ReportQueueURL, reportWorker.Handle, alerter.Alert, "report"),
		queue.NewConsumer(sqsClient, cfg.Queues.ImportQueueURL, importWorker.Handle, alerter.Alert, "import"),
	}

	log.Printf("Starting %d queue consumers", len(consumers))
	var wg sync.WaitGroup
	for _, consumer := range consumers {
		wg.Add(1)
		go func(c *queue.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Consumer stopped: %v", err)
			}
		}(consumer)
	}
	wg.Wait()
}
