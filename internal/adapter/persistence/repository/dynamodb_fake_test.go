package repository

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo understands exactly the condition expressions the repositories send.
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	counter  *int64
	failPuts int
	putErr   error
	queries  []string
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func pk(item map[string]types.AttributeValue) string {
	if s, ok := item["quote_number"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func numberAttr(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pk(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	if f.failPuts > 0 {
		f.failPuts--
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("injected")}
	}
	key := pk(in.Item)
	existing, exists := f.items[key]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(#pk)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "#version = :expected":
		if !exists || numberAttr(existing["version"]) != numberAttr(in.ExpressionAttributeValues[":expected"]) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("version")}
		}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch aws.ToString(in.UpdateExpression) {
	case "ADD #value :one":
		max := numberAttr(in.ExpressionAttributeValues[":max"])
		if f.counter != nil && *f.counter >= max {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("max")}
		}
		if f.counter == nil {
			f.counter = new(int64)
		}
		*f.counter++
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
			"value": &types.AttributeValueMemberN{Value: strconv.FormatInt(*f.counter, 10)},
		}}, nil
	case "SET #value = :floor":
		floor := numberAttr(in.ExpressionAttributeValues[":floor"])
		if f.counter != nil && *f.counter >= floor {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("floor")}
		}
		f.counter = &floor
		return &dynamodb.UpdateItemOutput{}, nil
	}
	return nil, errors.New("unexpected update expression")
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, aws.ToString(in.IndexName))
	attr := in.ExpressionAttributeNames["#k"]
	want := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS).Value
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if s, ok := item[attr].(*types.AttributeValueMemberS); ok && s.Value == want {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}
