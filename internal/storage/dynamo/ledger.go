package dynamo

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/example/ticket-reservation/internal/storage"
)

const counterKey = "counter"

// ledgerClient is the slice of the DynamoDB API the ledger uses.
type ledgerClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Ledger tracks remaining inventory in DynamoDB. The counter item is
// decremented with a conditional update, so concurrent reservations can
// never jointly overdraw the pool. A snapshot item is appended after every
// successful update for auditing; the counter item alone is authoritative,
// so a failed snapshot write is logged and does not fail the operation.
type Ledger struct {
	client    ledgerClient
	inventory string
	snapshots string
	capacity  int
}

func NewLedger(client *dynamodb.Client, tables Tables, initialCapacity int) *Ledger {
	return &Ledger{
		client:    client,
		inventory: tables.Inventory,
		snapshots: tables.Snapshots,
		capacity:  initialCapacity,
	}
}

type counterItem struct {
	ID        string `dynamodbav:"id"`
	Remaining int    `dynamodbav:"remaining"`
}

type snapshotItem struct {
	ID        string `dynamodbav:"id"`
	Remaining int    `dynamodbav:"remaining"`
	CreatedAt string `dynamodbav:"created_at"`
}

// Current returns the remaining inventory, seeding the initial capacity on
// first run.
func (l *Ledger) Current(ctx context.Context) (int, error) {
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.inventory),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: counterKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("read inventory counter: %w", err)
	}
	if out.Item == nil {
		if err := l.seed(ctx); err != nil {
			return 0, err
		}
		return l.capacity, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshal inventory counter: %w", err)
	}
	return item.Remaining, nil
}

// Decrement atomically subtracts quantity from the counter, returning
// storage.ErrInsufficientInventory when fewer than quantity units remain.
func (l *Ledger) Decrement(ctx context.Context, quantity int) (int, error) {
	if err := l.seed(ctx); err != nil {
		return 0, err
	}

	out, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(l.inventory),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: counterKey},
		},
		UpdateExpression:    aws.String("SET remaining = remaining - :q"),
		ConditionExpression: aws.String("remaining >= :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, storage.ErrInsufficientInventory
		}
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	var updated counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("unmarshal decremented counter: %w", err)
	}

	l.appendSnapshot(ctx, updated.Remaining)
	return updated.Remaining, nil
}

// Refund adds quantity back to the counter.
func (l *Ledger) Refund(ctx context.Context, quantity int) (int, error) {
	out, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(l.inventory),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: counterKey},
		},
		UpdateExpression: aws.String("SET remaining = remaining + :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("refund inventory: %w", err)
	}

	var updated counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("unmarshal refunded counter: %w", err)
	}

	l.appendSnapshot(ctx, updated.Remaining)
	return updated.Remaining, nil
}

// appendSnapshot writes an audit item for the new remaining value. The
// counter has already moved, so a failure here is logged, not returned.
func (l *Ledger) appendSnapshot(ctx context.Context, remaining int) {
	av, err := attributevalue.MarshalMap(snapshotItem{
		ID:        uuid.New().String(),
		Remaining: remaining,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[Dynamo] Failed to marshal inventory snapshot: %v", err)
		return
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.snapshots),
		Item:      av,
	})
	if err != nil {
		log.Printf("[Dynamo] Failed to append inventory snapshot: %v", err)
	}
}

// seed writes the counter item with the initial capacity if it is missing.
func (l *Ledger) seed(ctx context.Context) error {
	av, err := attributevalue.MarshalMap(counterItem{
		ID:        counterKey,
		Remaining: l.capacity,
	})
	if err != nil {
		return fmt.Errorf("marshal inventory counter: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.inventory),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil && !isConditionalCheckFailed(err) {
		return fmt.Errorf("seed inventory counter: %w", err)
	}
	return nil
}
