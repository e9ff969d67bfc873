// Package dynamo implements the storage contracts on DynamoDB. Uniqueness
// and inventory checks rely on conditional writes instead of transactions.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// NewClient builds a DynamoDB client from the default AWS configuration
// chain (environment, shared config, instance role).
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// Tables resolves the table names used by this backend from a common prefix.
type Tables struct {
	Inventory string
	Snapshots string
	Tickets   string
	Countdown string
}

func NewTables(prefix string) Tables {
	return Tables{
		Inventory: prefix + "inventory",
		Snapshots: prefix + "snapshots",
		Tickets:   prefix + "tickets",
		Countdown: prefix + "countdown",
	}
}

// isConditionalCheckFailed reports whether err is a failed ConditionExpression.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
