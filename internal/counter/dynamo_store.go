package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultDynamoKey = "flashcardscreated"

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type counterItem struct {
	ID      string `dynamodbav:"id"`
	Counter int64  `dynamodbav:"counter"`
}

// DynamoStore keeps the counter as a numeric attribute on one item and
// increments it with an ADD update expression.
type DynamoStore struct {
	api   DynamoAPI
	table string
	key   string
}

func NewDynamoStore(ctx context.Context, region, table, key string) (*DynamoStore, error) {
	// Loads credentials from the standard AWS chain:
	// env vars, shared config (~/.aws), ECS/EC2 role, etc.
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewDynamoStoreWithAPI(dynamodb.NewFromConfig(cfg), table, key), nil
}

func NewDynamoStoreWithAPI(api DynamoAPI, table, key string) *DynamoStore {
	if key == "" {
		key = DefaultDynamoKey
	}
	return &DynamoStore{api: api, table: table, key: key}
}

func (s *DynamoStore) itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: s.key},
	}
}

// Current treats a missing item as zero since ADD creates it on first use.
func (s *DynamoStore) Current(ctx context.Context) (int64, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("get counter item: %w", err)
	}
	if out.Item == nil {
		return 0, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshal counter item: %w", err)
	}
	return item.Counter, nil
}

func (s *DynamoStore) Add(ctx context.Context, n int64) (int64, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.itemKey(),
		UpdateExpression:         aws.String("ADD #c :n"),
		ExpressionAttributeNames: map[string]string{"#c": "counter"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedOld,
	})
	if err != nil {
		return 0, fmt.Errorf("update counter item: %w", err)
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return 0, fmt.Errorf("unmarshal counter item: %w", err)
	}
	return item.Counter, nil
}

func (s *DynamoStore) Diagnose(ctx context.Context) error {
	_, err := s.Current(ctx)
	return err
}
