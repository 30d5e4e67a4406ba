package codebytes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stubClient records the last request of each operation and replies with
// the configured output.
type stubClient struct {
	put    *dynamodb.PutItemInput
	get    *dynamodb.GetItemInput
	del    *dynamodb.DeleteItemInput
	query  *dynamodb.QueryInput
	getOut *dynamodb.GetItemOutput
	qOut   *dynamodb.QueryOutput
	err    error
}

func (c *stubClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.put = params
	return &dynamodb.PutItemOutput{}, c.err
}

func (c *stubClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.get = params
	if c.getOut == nil {
		return &dynamodb.GetItemOutput{}, c.err
	}
	return c.getOut, c.err
}

func (c *stubClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.del = params
	return &dynamodb.DeleteItemOutput{}, c.err
}

func (c *stubClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.query = params
	if c.qOut == nil {
		return &dynamodb.QueryOutput{}, c.err
	}
	return c.qOut, c.err
}

func TestDynamoStore_GetItem(t *testing.T) {
	ctx := context.Background()

	t.Run("missing item", func(t *testing.T) {
		client := &stubClient{}
		store := NewDynamoStore(client, "codebytes")

		item, err := store.GetItem(ctx, Key{Partition: "alice", Sort: "SNIPPET~demo"})
		if err != nil || item != nil {
			t.Errorf("Expected nil item and no error, got %v, %v", item, err)
		}
		if !aws.ToBool(client.get.ConsistentRead) {
			t.Error("Expected consistent read")
		}
		if aws.ToString(client.get.TableName) != "codebytes" {
			t.Errorf("Expected table codebytes, got %s", aws.ToString(client.get.TableName))
		}
	})

	t.Run("found item", func(t *testing.T) {
		client := &stubClient{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"pk":   &types.AttributeValueMemberS{Value: "alice"},
			"code": &types.AttributeValueMemberS{Value: "print(1)"},
		}}}

		item, err := NewDynamoStore(client, "codebytes").GetItem(ctx, Key{Partition: "alice", Sort: "SNIPPET~demo"})
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if item["code"] != "print(1)" {
			t.Errorf("Unexpected item %v", item)
		}
	})
}

func TestDynamoStore_PutItem(t *testing.T) {
	ctx := context.Background()
	item := Item{"pk": "alice", "sk": "SNIPPET~demo"}

	tests := []struct {
		name      string
		cond      Condition
		condition string
	}{
		{"unconditional", ConditionNone, ""},
		{"create", ConditionNotExists, "attribute_not_exists"},
		{"update", ConditionNotSystem, "<>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{}
			if err := NewDynamoStore(client, "codebytes").PutItem(ctx, item, tt.cond); err != nil {
				t.Fatalf("PutItem failed: %v", err)
			}

			got := aws.ToString(client.put.ConditionExpression)
			if tt.condition == "" && got != "" {
				t.Errorf("Expected no condition, got %s", got)
			}
			if !strings.Contains(got, tt.condition) {
				t.Errorf("Expected condition containing %q, got %q", tt.condition, got)
			}
		})
	}

	t.Run("condition failure", func(t *testing.T) {
		client := &stubClient{err: &types.ConditionalCheckFailedException{Message: aws.String("failed")}}
		err := NewDynamoStore(client, "codebytes").PutItem(ctx, item, ConditionNotExists)
		if !errors.Is(err, ErrConditionFailed) {
			t.Errorf("Expected ErrConditionFailed, got %v", err)
		}
	})

	t.Run("other failure", func(t *testing.T) {
		client := &stubClient{err: errors.New("throttled")}
		err := NewDynamoStore(client, "codebytes").PutItem(ctx, item, ConditionNotExists)
		if err == nil || errors.Is(err, ErrConditionFailed) {
			t.Errorf("Expected a plain error, got %v", err)
		}
	})
}

func TestDynamoStore_MarshalQuery(t *testing.T) {
	store := NewDynamoStore(&stubClient{}, "codebytes")

	t.Run("table query with prefix and filter", func(t *testing.T) {
		input, err := store.MarshalQuery(Query{
			KeyAttribute:   "pk",
			KeyValue:       "alice",
			SortAttribute:  "sk",
			SortBeginsWith: "SNIPPET~",
			Filter:         map[string]any{"public": true},
			Limit:          10,
			StartKey:       map[string]string{"pk": "alice", "sk": "SNIPPET~a"},
		})
		if err != nil {
			t.Fatalf("MarshalQuery failed: %v", err)
		}

		if !strings.Contains(aws.ToString(input.KeyConditionExpression), "begins_with") {
			t.Errorf("Expected begins_with key condition, got %s", aws.ToString(input.KeyConditionExpression))
		}
		if input.FilterExpression == nil {
			t.Error("Expected filter expression")
		}
		if input.IndexName != nil {
			t.Error("Expected table query")
		}
		if aws.ToInt32(input.Limit) != 10 {
			t.Errorf("Expected limit 10, got %d", aws.ToInt32(input.Limit))
		}
		if len(input.ExclusiveStartKey) != 2 {
			t.Errorf("Expected start key with 2 attributes, got %v", input.ExclusiveStartKey)
		}
	})

	t.Run("index query", func(t *testing.T) {
		input, err := store.MarshalQuery(Query{
			Index:        IndexReadOnlyLink,
			KeyAttribute: AttributeNameReadOnlyLink,
			KeyValue:     "https://x/get",
		})
		if err != nil {
			t.Fatalf("MarshalQuery failed: %v", err)
		}
		if aws.ToString(input.IndexName) != IndexReadOnlyLink {
			t.Errorf("Expected index %s, got %s", IndexReadOnlyLink, aws.ToString(input.IndexName))
		}
		if input.FilterExpression != nil {
			t.Error("Expected no filter expression")
		}
	})

	t.Run("prefix without sort attribute", func(t *testing.T) {
		_, err := store.MarshalQuery(Query{KeyAttribute: "gsi0_pk", KeyValue: "x", SortBeginsWith: "SNIPPET~"})
		if err == nil {
			t.Error("Expected error")
		}
	})
}

func TestDynamoStore_Query(t *testing.T) {
	client := &stubClient{qOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{"pk": &types.AttributeValueMemberS{Value: "alice"}, "sk": &types.AttributeValueMemberS{Value: "SNIPPET~a"}},
		},
		LastEvaluatedKey: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "alice"},
			"sk": &types.AttributeValueMemberS{Value: "SNIPPET~a"},
		},
	}}

	page, err := NewDynamoStore(client, "codebytes").Query(context.Background(), Query{KeyAttribute: "pk", KeyValue: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(page.Items))
	}
	if page.LastKey["sk"] != "SNIPPET~a" {
		t.Errorf("Expected last key SNIPPET~a, got %v", page.LastKey)
	}
}

func TestTableDefinition(t *testing.T) {
	def := TableDefinition("codebytes")

	if def.BillingMode != types.BillingModePayPerRequest {
		t.Errorf("Expected on-demand billing, got %s", def.BillingMode)
	}
	if len(def.GlobalSecondaryIndexes) != 2 {
		t.Fatalf("Expected 2 indexes, got %d", len(def.GlobalSecondaryIndexes))
	}
	for i, want := range []string{IndexReadOnlyLink, IndexReadWriteLink} {
		if got := aws.ToString(def.GlobalSecondaryIndexes[i].IndexName); got != want {
			t.Errorf("Expected index %s, got %s", want, got)
		}
	}

	ttl := TimeToLiveDefinition("codebytes")
	if aws.ToString(ttl.TimeToLiveSpecification.AttributeName) != AttributeNameExpires {
		t.Errorf("Expected ttl on %s", AttributeNameExpires)
	}
}
