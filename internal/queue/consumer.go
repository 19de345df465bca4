package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
)

// SQSAPI is the slice of the SQS client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// AlertFunc escalates an unexpected failure to operations.
type AlertFunc func(ctx context.Context, subject, message string) error

// HandlerFunc processes one envelope body. Returning a recognized domain
// error marks the work failed without alerting; any other error leaves the
// message on the queue for the platform's redrive policy.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer is the invocation wrapper every queue worker shares: receive a
// batch, process each message, delete on success, swallow recognized domain
// errors, escalate the rest.
type Consumer struct {
	client   SQSAPI
	queueURL string
	handler  HandlerFunc
	alert    AlertFunc
	log      *logrus.Entry
}

// NewConsumer creates a consumer bound to one queue and handler.
func NewConsumer(client SQSAPI, queueURL string, handler HandlerFunc, alert AlertFunc, name string) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		alert:    alert,
		log:      logrus.WithField("consumer", name),
	}
}

// Run long-polls the queue until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.log.WithError(err).Error("receive failed")
			continue
		}
		c.ProcessBatch(ctx, res.Messages)
	}
}

// ProcessBatch runs the wrapper over one received batch. Messages that fail
// unexpectedly are left undeleted so the platform redelivers them.
func (c *Consumer) ProcessBatch(ctx context.Context, messages []sqstypes.Message) {
	for _, msg := range messages {
		body, err := unwrap([]byte(aws.ToString(msg.Body)))
		if err != nil {
			// A message that cannot even be decoded will never succeed on
			// redelivery; drop it and alert.
			c.log.WithError(err).Error("undecodable message")
			c.escalate(ctx, "undecodable queue message", err)
			c.delete(ctx, msg)
			continue
		}

		if err := c.handler(ctx, body); err != nil {
			if apperrors.Recognized(err) {
				c.log.WithError(err).Warn("task failed with recognized error")
				c.delete(ctx, msg)
				continue
			}
			c.log.WithError(err).Error("task failed unexpectedly, leaving message for redrive")
			c.escalate(ctx, "queue worker failure", err)
			continue
		}
		c.delete(ctx, msg)
	}
}

func (c *Consumer) delete(ctx context.Context, msg sqstypes.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.log.WithError(err).Error("failed to delete message")
	}
}

func (c *Consumer) escalate(ctx context.Context, subject string, cause error) {
	if c.alert == nil {
		return
	}
	if err := c.alert(ctx, subject, cause.Error()); err != nil {
		c.log.WithError(err).Error("failed to raise alert")
	}
}

// unwrap extracts the envelope body from a raw queue message. Topics deliver
// either the envelope itself (raw delivery) or an SNS notification wrapping
// it in a Message field.
func unwrap(raw []byte) ([]byte, error) {
	var notification struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(raw, &notification); err == nil && notification.Message != "" {
		raw = []byte(notification.Message)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if len(envelope.Body) == 0 {
		return nil, fmt.Errorf("envelope for %q has no body", envelope.Event)
	}
	return envelope.Body, nil
}
