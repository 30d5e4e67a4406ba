package codebytes

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements Store on a DynamoDB table.
type DynamoStore struct {
	TableName string
	Client    DynamoDBClient
}

// NewDynamoStore creates a DynamoStore for the named table.
func NewDynamoStore(client DynamoDBClient, tableName string) *DynamoStore {
	return &DynamoStore{TableName: tableName, Client: client}
}

func marshalKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttributeNamePartitionKey: &types.AttributeValueMemberS{Value: key.Partition},
		AttributeNameSortKey:      &types.AttributeValueMemberS{Value: key.Sort},
	}
}

// GetItem implements Store.
func (s *DynamoStore) GetItem(ctx context.Context, key Key) (Item, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.TableName),
		Key:            marshalKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if out.Item == nil {
		return nil, nil
	}

	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

func buildCondition(cond Condition) (expression.ConditionBuilder, bool) {
	switch cond {
	case ConditionNotExists:
		return expression.AttributeNotExists(expression.Name(AttributeNamePartitionKey)).
			And(expression.AttributeNotExists(expression.Name(AttributeNameSortKey))), true
	case ConditionNotSystem:
		return expression.AttributeNotExists(expression.Name(AttributeNameSystem)).
			Or(expression.Name(AttributeNameSystem).NotEqual(expression.Value(true))), true
	}
	return expression.ConditionBuilder{}, false
}

// PutItem implements Store.
func (s *DynamoStore) PutItem(ctx context.Context, item Item, cond Condition) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      av,
	}

	if condition, ok := buildCondition(cond); ok {
		expr, err := expression.NewBuilder().WithCondition(condition).Build()
		if err != nil {
			return fmt.Errorf("failed to build expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s", ErrConditionFailed, cond)
		}
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// DeleteItem implements Store.
func (s *DynamoStore) DeleteItem(ctx context.Context, key Key) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.TableName),
		Key:       marshalKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// MarshalQuery builds the dynamodb query request for q.
func (s *DynamoStore) MarshalQuery(q Query) (*dynamodb.QueryInput, error) {
	keyCondition := expression.Key(q.KeyAttribute).Equal(expression.Value(q.KeyValue))
	if q.SortBeginsWith != "" {
		if q.SortAttribute == "" {
			return nil, fmt.Errorf("sort prefix given without a sort attribute")
		}
		keyCondition = keyCondition.And(expression.Key(q.SortAttribute).BeginsWith(q.SortBeginsWith))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)

	var filter expression.ConditionBuilder
	names := make([]string, 0, len(q.Filter))
	for name := range q.Filter {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		eq := expression.Name(name).Equal(expression.Value(q.Filter[name]))
		if filter.IsSet() {
			filter = filter.And(eq)
		} else {
			filter = eq
		}
	}
	if filter.IsSet() {
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	if filter.IsSet() {
		input.FilterExpression = expr.Filter()
	}

	if q.Index != "" {
		input.IndexName = aws.String(q.Index)
	}

	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	if len(q.StartKey) > 0 {
		input.ExclusiveStartKey = make(map[string]types.AttributeValue, len(q.StartKey))
		for k, v := range q.StartKey {
			input.ExclusiveStartKey[k] = &types.AttributeValueMemberS{Value: v}
		}
	}

	return input, nil
}

// Query implements Store.
func (s *DynamoStore) Query(ctx context.Context, q Query) (Page, error) {
	input, err := s.MarshalQuery(q)
	if err != nil {
		return Page{}, err
	}

	out, err := s.Client.Query(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query: %w", err)
	}

	page := Page{Items: make([]Item, 0, len(out.Items))}
	for i, av := range out.Items {
		var item Item
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return Page{}, fmt.Errorf("failed to unmarshal item %d: %w", i, err)
		}
		page.Items = append(page.Items, item)
	}

	if len(out.LastEvaluatedKey) > 0 {
		page.LastKey = make(map[string]string, len(out.LastEvaluatedKey))
		for k, v := range out.LastEvaluatedKey {
			var str string
			if err := attributevalue.Unmarshal(v, &str); err != nil {
				return Page{}, fmt.Errorf("failed to unmarshal last key %s: %w", k, err)
			}
			page.LastKey[k] = str
		}
	}

	return page, nil
}

// TableDefinition returns the create request for a table with the codebytes
// key schema: pk/sk on the table and one hash-keyed index per share link.
func TableDefinition(tableName string) *dynamodb.CreateTableInput {
	linkIndex := func(name, attribute string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attribute), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}

	return &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttributeNamePartitionKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(AttributeNameSortKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(AttributeNameReadOnlyLink), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(AttributeNameReadWriteLink), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttributeNamePartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttributeNameSortKey), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			linkIndex(IndexReadOnlyLink, AttributeNameReadOnlyLink),
			linkIndex(IndexReadWriteLink, AttributeNameReadWriteLink),
		},
	}
}

// TimeToLiveDefinition returns the request enabling expiry on the ttl attribute.
func TimeToLiveDefinition(tableName string) *dynamodb.UpdateTimeToLiveInput {
	return &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(AttributeNameExpires),
			Enabled:       aws.Bool(true),
		},
	}
}
