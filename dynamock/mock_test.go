package dynamock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

func TestNewMockClient(t *testing.T) {
	mock := NewMockClient(t)

	if mock.PutFunc == nil {
		t.Error("PutFunc not initialized")
	}
	if mock.GetFunc == nil {
		t.Error("GetFunc not initialized")
	}
	if mock.QueryFunc == nil {
		t.Error("QueryFunc not initialized")
	}
	if mock.DeleteFunc == nil {
		t.Error("DeleteFunc not initialized")
	}
	if mock.CreateTableFunc == nil {
		t.Error("CreateTableFunc not initialized")
	}
	if mock.UpdateTTLFunc == nil {
		t.Error("UpdateTTLFunc not initialized")
	}
}

func TestMockClient_PutItem_WithExpectation(t *testing.T) {
	mock := NewMockClient(t)
	ctx := context.Background()

	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		if aws.ToString(params.TableName) != "test-table" {
			t.Errorf("expected table name test-table, got %s", aws.ToString(params.TableName))
		}
		return &dynamodb.PutItemOutput{}, nil
	}

	_, err := mock.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String("test-table"),
		Item: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "alice"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMockClient_GetItem_WithError(t *testing.T) {
	mock := NewMockClient(t)
	expectedErr := errors.New("get failed")

	mock.GetFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
		return nil, expectedErr
	}

	_, err := mock.GetItem(context.Background(), &dynamodb.GetItemInput{})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
}

func TestMockLambda(t *testing.T) {
	t.Run("respond", func(t *testing.T) {
		mock := NewMockLambda(t).Respond(`{"stdout":"hi"}`)

		out, err := mock.Invoke(context.Background(), &lambda.InvokeInput{
			FunctionName: aws.String("python38"),
			Payload:      []byte(`{"code":"print('hi')","timeout":3}`),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(out.Payload) != `{"stdout":"hi"}` {
			t.Errorf("unexpected payload %s", out.Payload)
		}
		if len(mock.Calls) != 1 {
			t.Fatalf("expected 1 recorded call, got %d", len(mock.Calls))
		}
		if mock.Calls[0].FunctionName != "python38" {
			t.Errorf("expected function python38, got %s", mock.Calls[0].FunctionName)
		}
	})

	t.Run("custom expectation", func(t *testing.T) {
		mock := NewMockLambda(t)
		mock.InvokeFunc = func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			return &lambda.InvokeOutput{FunctionError: aws.String("Unhandled"), Payload: []byte(`{"errorMessage":"boom"}`)}, nil
		}

		out, err := mock.Invoke(context.Background(), &lambda.InvokeInput{FunctionName: aws.String("f")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if aws.ToString(out.FunctionError) != "Unhandled" {
			t.Errorf("expected function error, got %v", out.FunctionError)
		}
	})
}
