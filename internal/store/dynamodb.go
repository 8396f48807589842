package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the backend uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type kvItem struct {
	PK        string `dynamodbav:"PK"` // KV#<key>
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoBackend stores each key as one item of a single table.
type DynamoBackend struct {
	DB    DynamoAPI
	Table string
	Now   func() string
}

func MakeKey(key string) string { return fmt.Sprintf("KV#%s", key) }

func (d *DynamoBackend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.Table),
		Key:            map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: MakeKey(key)}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return []byte(item.Value), nil
}

func (d *DynamoBackend) Put(ctx context.Context, key string, value []byte) error {
	item := kvItem{PK: MakeKey(key), Value: string(value)}
	if d.Now != nil {
		item.UpdatedAt = d.Now()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = d.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.Table),
		Item:      av,
	})
	return err
}

func (d *DynamoBackend) Ping(ctx context.Context) error {
	_, err := d.DB.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.Table)})
	return err
}

func (d *DynamoBackend) Close() {}
