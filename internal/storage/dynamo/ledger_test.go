package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ticket-reservation/internal/storage"
)

// fakeLedgerClient scripts the DynamoDB calls the ledger makes. Snapshot
// writes are told apart from seed writes by table name.
type fakeLedgerClient struct {
	getItemOut    *dynamodb.GetItemOutput
	updateItemOut *dynamodb.UpdateItemOutput
	updateItemErr error
	snapshotErr   error

	snapshotCalls int
}

func (f *fakeLedgerClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItemOut, nil
}

func (f *fakeLedgerClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.updateItemErr != nil {
		return nil, f.updateItemErr
	}
	return f.updateItemOut, nil
}

func (f *fakeLedgerClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if aws.ToString(params.TableName) == "ticket_snapshots" {
		f.snapshotCalls++
		if f.snapshotErr != nil {
			return nil, f.snapshotErr
		}
	}
	return &dynamodb.PutItemOutput{}, nil
}

func newFakeLedger(client *fakeLedgerClient) *Ledger {
	return &Ledger{
		client:    client,
		inventory: "ticket_inventory",
		snapshots: "ticket_snapshots",
		capacity:  20000,
	}
}

func counterAttributes(remaining string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":        &types.AttributeValueMemberS{Value: counterKey},
		"remaining": &types.AttributeValueMemberN{Value: remaining},
	}
}

func TestLedger_Decrement_ReturnsValueWhenSnapshotFails(t *testing.T) {
	client := &fakeLedgerClient{
		updateItemOut: &dynamodb.UpdateItemOutput{Attributes: counterAttributes("95")},
		snapshotErr:   assert.AnError,
	}
	ledger := newFakeLedger(client)

	remaining, err := ledger.Decrement(context.Background(), 5)

	// The counter is authoritative and already moved; a failed audit write
	// must not fail the decrement.
	require.NoError(t, err)
	assert.Equal(t, 95, remaining)
}

func TestLedger_Decrement_InsufficientInventory(t *testing.T) {
	client := &fakeLedgerClient{
		updateItemErr: &types.ConditionalCheckFailedException{},
	}
	ledger := newFakeLedger(client)

	_, err := ledger.Decrement(context.Background(), 50)

	assert.ErrorIs(t, err, storage.ErrInsufficientInventory)
}

func TestLedger_Refund_ReturnsNewRemaining(t *testing.T) {
	client := &fakeLedgerClient{
		updateItemOut: &dynamodb.UpdateItemOutput{Attributes: counterAttributes("100")},
	}
	ledger := newFakeLedger(client)

	remaining, err := ledger.Refund(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 100, remaining)
	assert.Equal(t, 1, client.snapshotCalls, "snapshot appended after the refund")
}
