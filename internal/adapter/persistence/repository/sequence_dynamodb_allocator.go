package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultCountersTableName = "quote_counters"
	quoteSequenceCounter     = "quote_number"
)

// SequenceDynamoAllocator keeps the quote counter in a single item of the counters table
// (PK: counter_name). ADD is atomic on the server, so concurrent callers on any number of
// replicas always receive distinct values.
type SequenceDynamoAllocator struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.ISequenceAllocator = (*SequenceDynamoAllocator)(nil)

func NewSequenceDynamoAllocator(ddb DynamoAPI) *SequenceDynamoAllocator {
	return &SequenceDynamoAllocator{
		ddb:       ddb,
		tableName: tableName("COUNTERS_TABLE", defaultCountersTableName),
	}
}

func (a *SequenceDynamoAllocator) Next(ctx context.Context) (int64, error) {
	out, err := a.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(a.tableName),
		Key:                 a.key(),
		UpdateExpression:    aws.String("ADD #value :one"),
		ConditionExpression: aws.String("attribute_not_exists(#value) OR #value < :max"),
		ExpressionAttributeNames: map[string]string{
			"#value": "value",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":max": &types.AttributeValueMemberN{Value: strconv.FormatInt(entities.MaxQuoteSequence, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, fmt.Errorf("%w: counter %s reached %d", entities.ErrSequenceExhausted, quoteSequenceCounter, entities.MaxQuoteSequence)
		}
		return 0, classifyDynamoAllocationError(err)
	}

	n, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter %s: missing value in update response", quoteSequenceCounter)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func (a *SequenceDynamoAllocator) Seed(ctx context.Context, floor int64) error {
	if floor <= 0 {
		return nil
	}
	_, err := a.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(a.tableName),
		Key:                 a.key(),
		UpdateExpression:    aws.String("SET #value = :floor"),
		ConditionExpression: aws.String("attribute_not_exists(#value) OR #value < :floor"),
		ExpressionAttributeNames: map[string]string{
			"#value": "value",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":floor": &types.AttributeValueMemberN{Value: strconv.FormatInt(floor, 10)},
		},
	})
	if err != nil && !isConditionalCheckFailed(err) {
		return classifyDynamoAllocationError(err)
	}
	return nil
}

func (a *SequenceDynamoAllocator) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"counter_name": &types.AttributeValueMemberS{Value: quoteSequenceCounter},
	}
}

// classifyDynamoAllocationError marks throttling and transport failures as retryable.
// A missing table or a cancelled context is not going to get better by retrying.
func classifyDynamoAllocationError(err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", entities.ErrRetryableAllocation, err)
}
