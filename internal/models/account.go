package models

import "time"

// AccountStatus tracks a tenant through demo provisioning
type AccountStatus string

const (
	AccountStatusPreparing AccountStatus = "preparing"
	AccountStatusReady     AccountStatus = "ready"
)

// Account is a tenant of the application
type Account struct {
	ID              string        `dynamodbav:"id" json:"id"`
	Name            string        `dynamodbav:"name" json:"name"`
	Status          AccountStatus `dynamodbav:"status" json:"status"`
	ResponsibleUser string        `dynamodbav:"responsible_user" json:"responsibleUser"`
	IsDemo          bool          `dynamodbav:"is_demo" json:"isDemo"`
	Timezone        string        `dynamodbav:"timezone,omitempty" json:"timezone,omitempty"`
	CreatedAt       time.Time     `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `dynamodbav:"updated_at" json:"updatedAt"`
}

// DemoAccountEvent is published when a demo tenant is created. The replicator
// is its only consumer.
type DemoAccountEvent struct {
	Account string `json:"account"`
}
