package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	AWS     AWSConfig
	Tables  TableConfig
	Buckets BucketConfig
	Queues  QueueConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Host string
}

// AuthConfig holds JWT-related configuration
type AuthConfig struct {
	Secret string
}

// AWSConfig holds AWS connection details
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for LocalStack/MinIO-style local stacks
}

// TableConfig holds the document-store table names
type TableConfig struct {
	Tasks    string
	Accounts string
}

// BucketConfig holds the object-storage bucket names
type BucketConfig struct {
	Protected string
	Public    string
}

// QueueConfig holds pub/sub topology
type QueueConfig struct {
	TaskTopicARN   string
	AlertTopicARN  string
	ReportQueueURL string
	ImportQueueURL string
	DemoQueueURL   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Auth: AuthConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_ENDPOINT", ""),
		},
		Tables: TableConfig{
			Tasks:    getEnv("TASKS_TABLE", "Tasks"),
			Accounts: getEnv("ACCOUNTS_TABLE", "Accounts"),
		},
		Buckets: BucketConfig{
			Protected: getEnv("PROTECTED_BUCKET", ""),
			Public:    getEnv("PUBLIC_BUCKET", ""),
		},
		Queues: QueueConfig{
			TaskTopicARN:   getEnv("TASK_TOPIC_ARN", ""),
			AlertTopicARN:  getEnv("ALERT_TOPIC_ARN", ""),
			ReportQueueURL: getEnv("REPORT_QUEUE_URL", ""),
			ImportQueueURL: getEnv("IMPORT_QUEUE_URL", ""),
			DemoQueueURL:   getEnv("DEMO_QUEUE_URL", ""),
		},
	}

	// Validate required fields
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Buckets.Protected == "" {
		return nil, fmt.Errorf("PROTECTED_BUCKET is required")
	}
	if cfg.Buckets.Public == "" {
		return nil, fmt.Errorf("PUBLIC_BUCKET is required")
	}
	if cfg.Queues.TaskTopicARN == "" {
		return nil, fmt.Errorf("TASK_TOPIC_ARN is required")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
