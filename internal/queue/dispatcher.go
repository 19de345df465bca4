package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Event names carried in the dispatch envelope.
const (
	EventReportRequested    = "report-requested"
	EventImportRequested    = "sheet-import-requested"
	EventDemoAccountCreated = "demo-account-created"
)

// SchemaVersion of the envelope format.
const SchemaVersion = 1

// Origin identifies this service in published envelopes.
const Origin = "employees-service"

// Envelope wraps every published message. Delivery is at-least-once:
// consumers may receive the same envelope more than once.
type Envelope struct {
	Event         string          `json:"event"`
	SchemaVersion int             `json:"schemaVersion"`
	Origin        string          `json:"origin"`
	Body          json.RawMessage `json:"body"`
}

// SNSAPI is the slice of the SNS client the dispatcher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher is implemented by the dispatcher and by test fakes.
type Publisher interface {
	Publish(ctx context.Context, event string, body any, partitionKey string) error
}

// Dispatcher publishes job references to the task topic. Fire-and-forget:
// once the publish succeeds the queue owns delivery.
type Dispatcher struct {
	client   SNSAPI
	topicARN string
}

// NewDispatcher creates a dispatcher on the given topic.
func NewDispatcher(client SNSAPI, topicARN string) *Dispatcher {
	return &Dispatcher{client: client, topicARN: topicARN}
}

// Publish wraps body in an envelope and publishes it. partitionKey, when
// set, becomes the message group for FIFO ordering.
func (d *Dispatcher) Publish(ctx context.Context, event string, body any, partitionKey string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s body: %w", event, err)
	}
	envelope, err := json.Marshal(Envelope{
		Event:         event,
		SchemaVersion: SchemaVersion,
		Origin:        Origin,
		Body:          raw,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(d.topicARN),
		Message:  aws.String(string(envelope)),
	}
	if partitionKey != "" {
		input.MessageGroupId = aws.String(partitionKey)
	}
	if _, err := d.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}

// Alerter escalates unexpected failures to the operational alert topic.
type Alerter struct {
	client   SNSAPI
	topicARN string
}

// NewAlerter creates an alerter on the given topic.
func NewAlerter(client SNSAPI, topicARN string) *Alerter {
	return &Alerter{client: client, topicARN: topicARN}
}

// Alert raises an operational alert. Alert delivery failures are returned to
// the caller but must never mask the original error.
func (a *Alerter) Alert(ctx context.Context, subject, message string) error {
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
