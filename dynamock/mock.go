package dynamock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

type DynamoDBAPICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// DynamoDBAPI defines the DynamoDB operations required by codebytes and its
// admin tooling.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// MockClient is a simple expectation-based mock for DynamoDB operations.
// Unset expectations fail the test when called.
type MockClient struct {
	PutFunc         DynamoDBAPICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc         DynamoDBAPICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	QueryFunc       DynamoDBAPICall[dynamodb.QueryInput, dynamodb.QueryOutput]
	DeleteFunc      DynamoDBAPICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	CreateTableFunc DynamoDBAPICall[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	UpdateTTLFunc   DynamoDBAPICall[dynamodb.UpdateTimeToLiveInput, dynamodb.UpdateTimeToLiveOutput]
}

var _ DynamoDBAPI = (*MockClient)(nil)

// NewMockClient creates a new mock DynamoDB client with default configuration.
func NewMockClient(t *testing.T) *MockClient {
	return &MockClient{
		PutFunc:         defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t, "PutItem"),
		GetFunc:         defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t, "GetItem"),
		QueryFunc:       defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
		DeleteFunc:      defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t, "DeleteItem"),
		CreateTableFunc: defaultFunc[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t, "CreateTable"),
		UpdateTTLFunc:   defaultFunc[dynamodb.UpdateTimeToLiveInput, dynamodb.UpdateTimeToLiveOutput](t, "UpdateTimeToLive"),
	}
}

func defaultFunc[T, U any](t *testing.T, op string) DynamoDBAPICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Fatalf("unexpected call to %s", op)
		return nil, nil
	}
}

func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *MockClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return m.CreateTableFunc(ctx, params, optFns...)
}

func (m *MockClient) UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	return m.UpdateTTLFunc(ctx, params, optFns...)
}

// LambdaInvocation records one call made to a MockLambda.
type LambdaInvocation struct {
	FunctionName string
	Payload      []byte
}

// MockLambda is an expectation-based mock of the Lambda Invoke API. It
// records every invocation.
type MockLambda struct {
	InvokeFunc func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
	Calls      []LambdaInvocation
}

// NewMockLambda creates a MockLambda that fails the test when invoked.
func NewMockLambda(t *testing.T) *MockLambda {
	return &MockLambda{
		InvokeFunc: func(context.Context, *lambda.InvokeInput, ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			t.Fatal("unexpected call to Invoke")
			return nil, nil
		},
	}
}

// Respond makes every invocation return payload.
func (m *MockLambda) Respond(payload string) *MockLambda {
	m.InvokeFunc = func(context.Context, *lambda.InvokeInput, ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
		return &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(payload)}, nil
	}
	return m
}

func (m *MockLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	call := LambdaInvocation{Payload: params.Payload}
	if params.FunctionName != nil {
		call.FunctionName = *params.FunctionName
	}
	m.Calls = append(m.Calls, call)
	return m.InvokeFunc(ctx, params, optFns...)
}
