package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/storage"
)

// TicketStore persists issued tickets in DynamoDB. A conditional PutItem on
// the number partition key is the final authority on uniqueness.
type TicketStore struct {
	client *dynamodb.Client
	table  string
}

func NewTicketStore(client *dynamodb.Client, tables Tables) *TicketStore {
	return &TicketStore{client: client, table: tables.Tickets}
}

type ticketItem struct {
	Number    int    `dynamodbav:"number"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email"`
	Quantity  int    `dynamodbav:"quantity"`
	CreatedAt string `dynamodbav:"created_at"`
}

func (i ticketItem) toTicket() ticket.Ticket {
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return ticket.Ticket{
		Number:     i.Number,
		OwnerName:  i.Name,
		OwnerEmail: i.Email,
		Quantity:   i.Quantity,
		CreatedAt:  createdAt,
	}
}

// Insert persists a ticket, mapping a failed attribute_not_exists condition
// to storage.ErrDuplicateNumber so the caller can redraw.
func (s *TicketStore) Insert(ctx context.Context, t *ticket.Ticket) error {
	av, err := attributevalue.MarshalMap(ticketItem{
		Number:    t.Number,
		Name:      t.OwnerName,
		Email:     t.OwnerEmail,
		Quantity:  t.Quantity,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#n)"),
		ExpressionAttributeNames: map[string]string{"#n": "number"},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrDuplicateNumber
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// Delete removes the ticket with the given number, if it exists.
func (s *TicketStore) Delete(ctx context.Context, number int) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"number": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", number)},
		},
	})
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// GetByNumber returns the ticket with the given number or storage.ErrNotFound.
func (s *TicketStore) GetByNumber(ctx context.Context, number int) (*ticket.Ticket, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"number": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", number)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if out.Item == nil {
		return nil, storage.ErrNotFound
	}

	var item ticketItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal ticket: %w", err)
	}
	t := item.toTicket()
	return &t, nil
}

// ListByEmail returns all tickets owned by the given email, oldest first.
func (s *TicketStore) ListByEmail(ctx context.Context, email string) ([]ticket.Ticket, error) {
	var tickets []ticket.Ticket

	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan tickets by email: %w", err)
		}
		var items []ticketItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal tickets: %w", err)
		}
		for _, item := range items {
			tickets = append(tickets, item.toTicket())
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].Number < tickets[j].Number
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// Numbers returns the set of all issued ticket numbers.
func (s *TicketStore) Numbers(ctx context.Context) (map[int]struct{}, error) {
	numbers := make(map[int]struct{})

	input := &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("#n"),
		ExpressionAttributeNames: map[string]string{"#n": "number"},
	}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan ticket numbers: %w", err)
		}
		var items []struct {
			Number int `dynamodbav:"number"`
		}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal ticket numbers: %w", err)
		}
		for _, item := range items {
			numbers[item.Number] = struct{}{}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return numbers, nil
}
