package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/ticket-reservation/internal/storage"
)

const deadlineKey = "deadline"

// CountdownStore persists the sale countdown deadline as a single item.
type CountdownStore struct {
	client *dynamodb.Client
	table  string
}

func NewCountdownStore(client *dynamodb.Client, tables Tables) *CountdownStore {
	return &CountdownStore{client: client, table: tables.Countdown}
}

type countdownItem struct {
	ID       string `dynamodbav:"id"`
	Deadline string `dynamodbav:"deadline"`
}

// Deadline returns the stored deadline or storage.ErrNotFound when unset.
func (s *CountdownStore) Deadline(ctx context.Context) (time.Time, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: deadlineKey},
		},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("read countdown: %w", err)
	}
	if out.Item == nil {
		return time.Time{}, storage.ErrNotFound
	}

	var item countdownItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal countdown: %w", err)
	}
	deadline, err := time.Parse(time.RFC3339Nano, item.Deadline)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse countdown deadline: %w", err)
	}
	return deadline, nil
}

// SetDeadline stores the deadline, replacing any previous value.
func (s *CountdownStore) SetDeadline(ctx context.Context, deadline time.Time) error {
	av, err := attributevalue.MarshalMap(countdownItem{
		ID:       deadlineKey,
		Deadline: deadline.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal countdown: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("set countdown: %w", err)
	}
	return nil
}
