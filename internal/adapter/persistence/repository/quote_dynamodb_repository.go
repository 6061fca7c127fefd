package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/money"
	"quotes_service/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultQuotesTableName   = "quotes"
	defaultMutateMaxAttempts = 3

	projectRefIndex    = "project_ref-index"
	lotRefIndex        = "lot_ref-index"
	contractorRefIndex = "contractor_ref-index"
	statusIndex        = "status-index"
)

// DynamoAPI is the subset of *dynamodb.Client the repositories use.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type lineItemItem struct {
	ID           string `dynamodbav:"id"`
	Description  string `dynamodbav:"item_description"`
	Quantity     string `dynamodbav:"quantity"`
	Rate         string `dynamodbav:"rate"`
	LineTotal    string `dynamodbav:"line_total"`
	DisplayOrder int    `dynamodbav:"display_order"`
}

type quoteItem struct {
	Number        string         `dynamodbav:"quote_number"`
	Sequence      int64          `dynamodbav:"sequence"`
	ProjectRef    string         `dynamodbav:"project_ref"`
	LotRef        string         `dynamodbav:"lot_ref,omitempty"`
	Category      string         `dynamodbav:"category,omitempty"`
	ContractorRef string         `dynamodbav:"contractor_ref"`
	Status        string         `dynamodbav:"status"`
	LineItems     []lineItemItem `dynamodbav:"line_items"`
	TotalAmount   string         `dynamodbav:"total_amount"`

	ApprovedBy             string `dynamodbav:"approved_by,omitempty"`
	ApprovedAt             string `dynamodbav:"approved_at,omitempty"`
	RejectionReason        string `dynamodbav:"rejection_reason,omitempty"`
	CustomerAcknowledgedBy string `dynamodbav:"customer_acknowledged_by,omitempty"`
	CustomerAcknowledgedAt string `dynamodbav:"customer_acknowledged_at,omitempty"`

	Version   int64  `dynamodbav:"version"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// QuoteDynamoRepository persists quotes in DynamoDB.
//
// Table requirements:
//   - PK: quote_number (string)
//   - GSIs (hash key only): project_ref-index, lot_ref-index, contractor_ref-index, status-index
//
// Writes are whole-item PutItem calls conditioned on the version read, so a concurrent
// writer makes the condition fail instead of being overwritten.
type QuoteDynamoRepository struct {
	ddb               DynamoAPI
	tableName         string
	mutateMaxAttempts int
}

var _ interfaces.IQuoteRepository = (*QuoteDynamoRepository)(nil)

func NewQuoteDynamoRepository(ddb DynamoAPI, mutateMaxAttempts int) *QuoteDynamoRepository {
	if mutateMaxAttempts <= 0 {
		mutateMaxAttempts = defaultMutateMaxAttempts
	}
	return &QuoteDynamoRepository{
		ddb:               ddb,
		tableName:         tableName("QUOTES_TABLE", defaultQuotesTableName),
		mutateMaxAttempts: mutateMaxAttempts,
	}
}

func (r *QuoteDynamoRepository) Create(ctx context.Context, q entities.Quote) (entities.Quote, error) {
	q = q.Clone()
	q.RecalculateTotal()
	if err := q.CheckInvariants(); err != nil {
		return entities.Quote{}, err
	}
	q.Version = 1

	av, err := attributevalue.MarshalMap(toQuoteItem(q))
	if err != nil {
		return entities.Quote{}, err
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "quote_number",
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return entities.Quote{}, fmt.Errorf("%w: quote %s already exists", entities.ErrConcurrencyConflict, q.Number)
		}
		return entities.Quote{}, err
	}
	return q, nil
}

func (r *QuoteDynamoRepository) GetByNumber(ctx context.Context, number string) (entities.Quote, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"quote_number": &types.AttributeValueMemberS{Value: number},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Quote{}, err
	}
	if len(out.Item) == 0 {
		return entities.Quote{}, nil
	}
	return unmarshalQuote(out.Item)
}

func (r *QuoteDynamoRepository) Mutate(ctx context.Context, number string, fn interfaces.MutateFunc) (entities.Quote, error) {
	for attempt := 1; attempt <= r.mutateMaxAttempts; attempt++ {
		stored, err := r.GetByNumber(ctx, number)
		if err != nil {
			return entities.Quote{}, err
		}
		if stored.Number == "" {
			return entities.Quote{}, nil
		}

		working := stored.Clone()
		if err := fn(&working); err != nil {
			return entities.Quote{}, err
		}
		working.RecalculateTotal()
		if err := working.CheckInvariants(); err != nil {
			return entities.Quote{}, err
		}
		working.Number = stored.Number
		working.Version = stored.Version + 1

		av, err := attributevalue.MarshalMap(toQuoteItem(working))
		if err != nil {
			return entities.Quote{}, err
		}
		_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                av,
			ConditionExpression: aws.String("#version = :expected"),
			ExpressionAttributeNames: map[string]string{
				"#version": "version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(stored.Version, 10)},
			},
		})
		if err == nil {
			return working, nil
		}
		if !isConditionalCheckFailed(err) {
			return entities.Quote{}, err
		}
		// Someone else wrote first; re-read and re-evaluate against their result.
	}
	return entities.Quote{}, fmt.Errorf("%w: quote %s after %d attempts", entities.ErrConcurrencyConflict, number, r.mutateMaxAttempts)
}

func (r *QuoteDynamoRepository) FindMaxSequence(ctx context.Context) (int64, error) {
	p := dynamodb.NewScanPaginator(r.ddb, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("#seq"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "sequence",
		},
		ConsistentRead: aws.Bool(true),
	})
	var max int64
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		for _, av := range page.Items {
			var it struct {
				Sequence int64 `dynamodbav:"sequence"`
			}
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				return 0, err
			}
			if it.Sequence > max {
				max = it.Sequence
			}
		}
	}
	return max, nil
}

// List queries the most selective index available and applies the rest of the filter in
// memory. An empty filter scans the table.
func (r *QuoteDynamoRepository) List(ctx context.Context, filter entities.QuoteFilter) ([]entities.Quote, error) {
	var items []map[string]types.AttributeValue
	var err error
	switch {
	case filter.LotRef != "":
		items, err = r.query(ctx, lotRefIndex, "lot_ref", filter.LotRef)
	case filter.ProjectRef != "":
		items, err = r.query(ctx, projectRefIndex, "project_ref", filter.ProjectRef)
	case filter.ContractorRef != "":
		items, err = r.query(ctx, contractorRefIndex, "contractor_ref", filter.ContractorRef)
	case filter.Status != "":
		items, err = r.query(ctx, statusIndex, "status", string(filter.Status))
	default:
		items, err = r.scan(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]entities.Quote, 0, len(items))
	for _, av := range items {
		q, err := unmarshalQuote(av)
		if err != nil {
			return nil, err
		}
		if filter.Matches(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *QuoteDynamoRepository) query(ctx context.Context, index, attr, value string) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewQueryPaginator(r.ddb, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (r *QuoteDynamoRepository) scan(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewScanPaginator(r.ddb, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func unmarshalQuote(av map[string]types.AttributeValue) (entities.Quote, error) {
	var it quoteItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return entities.Quote{}, err
	}
	return fromQuoteItem(it)
}

func toQuoteItem(q entities.Quote) quoteItem {
	it := quoteItem{
		Number:                 q.Number,
		Sequence:               q.Sequence(),
		ProjectRef:             q.ProjectRef,
		LotRef:                 q.LotRef,
		Category:               q.Category,
		ContractorRef:          q.ContractorRef,
		Status:                 string(q.Status),
		LineItems:              make([]lineItemItem, 0, len(q.LineItems)),
		TotalAmount:            q.TotalAmount.String(),
		ApprovedBy:             q.ApprovedBy,
		ApprovedAt:             formatTimePtr(q.ApprovedAt),
		RejectionReason:        q.RejectionReason,
		CustomerAcknowledgedBy: q.CustomerAcknowledgedBy,
		CustomerAcknowledgedAt: formatTimePtr(q.CustomerAcknowledgedAt),
		Version:                q.Version,
		CreatedAt:              q.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:              q.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, li := range q.LineItems {
		it.LineItems = append(it.LineItems, lineItemItem{
			ID:           li.ID,
			Description:  li.Description,
			Quantity:     li.Quantity.String(),
			Rate:         li.Rate.String(),
			LineTotal:    li.LineTotal.String(),
			DisplayOrder: li.DisplayOrder,
		})
	}
	return it
}

// fromQuoteItem recomputes totals from quantity and rate; stored totals are informational.
func fromQuoteItem(it quoteItem) (entities.Quote, error) {
	q := entities.Quote{
		Number:                 it.Number,
		ProjectRef:             it.ProjectRef,
		LotRef:                 it.LotRef,
		Category:               it.Category,
		ContractorRef:          it.ContractorRef,
		Status:                 entities.QuoteStatus(it.Status),
		ApprovedBy:             it.ApprovedBy,
		RejectionReason:        it.RejectionReason,
		CustomerAcknowledgedBy: it.CustomerAcknowledgedBy,
		Version:                it.Version,
	}
	var err error
	if q.CreatedAt, err = time.Parse(time.RFC3339Nano, it.CreatedAt); err != nil {
		return entities.Quote{}, fmt.Errorf("quote %s created_at: %w", it.Number, err)
	}
	if q.UpdatedAt, err = time.Parse(time.RFC3339Nano, it.UpdatedAt); err != nil {
		return entities.Quote{}, fmt.Errorf("quote %s updated_at: %w", it.Number, err)
	}
	if q.ApprovedAt, err = parseTimePtr(it.ApprovedAt); err != nil {
		return entities.Quote{}, fmt.Errorf("quote %s approved_at: %w", it.Number, err)
	}
	if q.CustomerAcknowledgedAt, err = parseTimePtr(it.CustomerAcknowledgedAt); err != nil {
		return entities.Quote{}, fmt.Errorf("quote %s customer_acknowledged_at: %w", it.Number, err)
	}

	for _, li := range it.LineItems {
		qty, err := money.Parse(li.Quantity)
		if err != nil {
			return entities.Quote{}, fmt.Errorf("quote %s line %s quantity: %w", it.Number, li.ID, err)
		}
		rate, err := money.Parse(li.Rate)
		if err != nil {
			return entities.Quote{}, fmt.Errorf("quote %s line %s rate: %w", it.Number, li.ID, err)
		}
		q.LineItems = append(q.LineItems, entities.LineItem{
			ID:           li.ID,
			Description:  li.Description,
			Quantity:     qty,
			Rate:         rate,
			DisplayOrder: li.DisplayOrder,
		})
	}
	q.RecalculateTotal()
	return q, nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimePtr maps an absent attribute to nil.
func parseTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}
