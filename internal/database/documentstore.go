package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// MaxTries bounds the in-process retry loop for throttled document-store
// calls. Past it the error is treated as a hard failure.
const MaxTries = 5

// DocumentAPI is the slice of the DynamoDB client the pipeline uses.
// This allows swapping in an in-memory implementation in tests.
type DocumentAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ErrItemNotFound is returned by Get when no row exists for the key.
var ErrItemNotFound = errors.New("item not found")

// ErrConditionFailed is returned by PutConditional when the condition
// expression rejected the write.
var ErrConditionFailed = errors.New("conditional write failed")

// Store wraps the document-store client with marshaling and the throttling
// retry policy shared by every caller.
type Store struct {
	client DocumentAPI
	log    *logrus.Entry
}

// NewStore creates a document store on top of the given client.
func NewStore(client DocumentAPI) *Store {
	return &Store{
		client: client,
		log:    logrus.WithField("component", "documentstore"),
	}
}

// Get reads one item by key into out. Returns ErrItemNotFound on a miss.
func (s *Store) Get(ctx context.Context, table string, key map[string]types.AttributeValue, out any) error {
	var item map[string]types.AttributeValue
	err := s.withThrottleRetry(ctx, func() error {
		res, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(table),
			Key:       key,
		})
		if err != nil {
			return err
		}
		item = res.Item
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to get item from %s: %w", table, err)
	}
	if len(item) == 0 {
		return ErrItemNotFound
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from %s: %w", table, err)
	}
	return nil
}

// Put writes one item unconditionally (full replace).
func (s *Store) Put(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item for %s: %w", table, err)
	}
	err = s.withThrottleRetry(ctx, func() error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(table),
			Item:      av,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put item into %s: %w", table, err)
	}
	return nil
}

// PutConditional writes one item guarded by a condition expression. Returns
// ErrConditionFailed when the condition rejects the write.
func (s *Store) PutConditional(ctx context.Context, table string, item any, condition string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item for %s: %w", table, err)
	}
	err = s.withThrottleRetry(ctx, func() error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(table),
			Item:                av,
			ConditionExpression: aws.String(condition),
		})
		return err
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConditionFailed
		}
		return fmt.Errorf("failed to put item into %s: %w", table, err)
	}
	return nil
}

// QueryByAccount reads every row of a tenant from the given table into out,
// which must be a pointer to a slice.
func (s *Store) QueryByAccount(ctx context.Context, table, account string, out any) error {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		var res *dynamodb.QueryOutput
		err := s.withThrottleRetry(ctx, func() error {
			var err error
			res, err = s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(table),
				KeyConditionExpression:    aws.String("#a = :account"),
				ExpressionAttributeNames:  map[string]string{"#a": "account"},
				ExpressionAttributeValues: map[string]types.AttributeValue{":account": &types.AttributeValueMemberS{Value: account}},
				ExclusiveStartKey:         startKey,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		items = append(items, res.Items...)
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		startKey = res.LastEvaluatedKey
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("failed to unmarshal query result from %s: %w", table, err)
	}
	return nil
}

// BatchWriteRows puts up to 25 rows in one call and returns whichever rows
// the store rejected as unprocessed. Callers re-queue those; losing them
// silently would drop data.
func (s *Store) BatchWriteRows(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error) {
	requests := make([]types.WriteRequest, 0, len(rows))
	for _, row := range rows {
		av, err := attributevalue.MarshalMap(row)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal row for %s: %w", table, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	var res *dynamodb.BatchWriteItemOutput
	err := s.withThrottleRetry(ctx, func() error {
		var err error
		res, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: requests},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to batch-write into %s: %w", table, err)
	}

	var unprocessed []map[string]any
	for _, req := range res.UnprocessedItems[table] {
		if req.PutRequest == nil {
			continue
		}
		var row map[string]any
		if err := attributevalue.UnmarshalMap(req.PutRequest.Item, &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal unprocessed row from %s: %w", table, err)
		}
		unprocessed = append(unprocessed, row)
	}
	return unprocessed, nil
}

// withThrottleRetry retries throttled calls with a growing randomized delay.
func (s *Store) withThrottleRetry(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isThrottle(err) || attempt >= MaxTries {
			return err
		}
		delay := time.Duration(attempt)*time.Second + time.Duration(rand.Int63n(int64(250*time.Millisecond)))
		s.log.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("throttled, backing off")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isThrottle(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	if errors.As(err, &pte) {
		return true
	}
	var rle *types.RequestLimitExceeded
	if errors.As(err, &rle) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling":
			return true
		}
	}
	return false
}
