package dynamock

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nisimpson/codebytes"
)

func item(pk, sk string, extra ...any) codebytes.Item {
	it := codebytes.Item{
		codebytes.AttributeNamePartitionKey: pk,
		codebytes.AttributeNameSortKey:      sk,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		it[extra[i].(string)] = extra[i+1]
	}
	return it
}

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.PutItem(ctx, item("alice", "SNIPPET~demo", "count", 3), codebytes.ConditionNone); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	got, err := store.GetItem(ctx, codebytes.Key{Partition: "alice", Sort: "SNIPPET~demo"})
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got["count"] != float64(3) {
		t.Errorf("expected numbers to come back as float64, got %T", got["count"])
	}

	missing, err := store.GetItem(ctx, codebytes.Key{Partition: "alice", Sort: "SNIPPET~other"})
	if err != nil || missing != nil {
		t.Errorf("expected nil item and no error, got %v, %v", missing, err)
	}

	if err := store.DeleteItem(ctx, codebytes.Key{Partition: "alice", Sort: "SNIPPET~demo"}); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d items", store.Len())
	}
}

func TestMemoryStore_Conditions(t *testing.T) {
	ctx := context.Background()

	t.Run("not exists", func(t *testing.T) {
		store := NewMemoryStore()
		if err := store.PutItem(ctx, item("alice", "SNIPPET~demo"), codebytes.ConditionNotExists); err != nil {
			t.Fatalf("first put failed: %v", err)
		}
		err := store.PutItem(ctx, item("alice", "SNIPPET~demo"), codebytes.ConditionNotExists)
		if !errors.Is(err, codebytes.ErrConditionFailed) {
			t.Errorf("expected ErrConditionFailed, got %v", err)
		}
	})

	t.Run("not system", func(t *testing.T) {
		store := NewMemoryStore()
		_ = store.PutItem(ctx, item("SYSTEM", "RUNTIME~python38", "system", true), codebytes.ConditionNone)
		_ = store.PutItem(ctx, item("alice", "RUNTIME~mine"), codebytes.ConditionNone)

		err := store.PutItem(ctx, item("SYSTEM", "RUNTIME~python38", "description", "x"), codebytes.ConditionNotSystem)
		if !errors.Is(err, codebytes.ErrConditionFailed) {
			t.Errorf("expected ErrConditionFailed for system item, got %v", err)
		}
		if err := store.PutItem(ctx, item("alice", "RUNTIME~mine", "description", "x"), codebytes.ConditionNotSystem); err != nil {
			t.Errorf("expected update of regular item to pass, got %v", err)
		}
		if err := store.PutItem(ctx, item("alice", "RUNTIME~new"), codebytes.ConditionNotSystem); err != nil {
			t.Errorf("expected put of missing item to pass, got %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		store := NewMemoryStore()
		if err := store.PutItem(ctx, codebytes.Item{"pk": "alice"}, codebytes.ConditionNone); err == nil {
			t.Error("expected error for item without sort key")
		}
	})

	t.Run("injected failure", func(t *testing.T) {
		store := NewMemoryStore()
		boom := errors.New("boom")
		store.FailPut = func(codebytes.Item) error { return boom }
		if err := store.PutItem(ctx, item("alice", "SNIPPET~demo"), codebytes.ConditionNone); !errors.Is(err, boom) {
			t.Errorf("expected injected error, got %v", err)
		}
	})
}

func TestMemoryStore_Query(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 1; i <= 5; i++ {
		_ = store.PutItem(ctx, item("alice", fmt.Sprintf("SNIPPET~s%d", i), "public", i%2 == 0), codebytes.ConditionNone)
	}
	_ = store.PutItem(ctx, item("alice", "RUNTIME~python38"), codebytes.ConditionNone)
	_ = store.PutItem(ctx, item("bob", "SNIPPET~s1"), codebytes.ConditionNone)
	_ = store.PutItem(ctx, item("bob", "SNIPPET~link", "gsi0_pk", "https://x/get"), codebytes.ConditionNone)

	t.Run("sort prefix", func(t *testing.T) {
		page, err := store.Query(ctx, codebytes.Query{
			KeyAttribute:   "pk",
			KeyValue:       "alice",
			SortAttribute:  "sk",
			SortBeginsWith: "SNIPPET~",
		})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page.Items) != 5 {
			t.Errorf("expected 5 items, got %d", len(page.Items))
		}
		if page.LastKey != nil {
			t.Errorf("expected exhausted query, got last key %v", page.LastKey)
		}
		if page.Items[0]["sk"] != "SNIPPET~s1" {
			t.Errorf("expected items ordered by sort key, got %v first", page.Items[0]["sk"])
		}
	})

	t.Run("filter", func(t *testing.T) {
		page, _ := store.Query(ctx, codebytes.Query{
			KeyAttribute: "pk",
			KeyValue:     "alice",
			Filter:       map[string]any{"public": true},
		})
		if len(page.Items) != 2 {
			t.Errorf("expected 2 public items, got %d", len(page.Items))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		q := codebytes.Query{
			KeyAttribute:   "pk",
			KeyValue:       "alice",
			SortAttribute:  "sk",
			SortBeginsWith: "SNIPPET~",
			Limit:          2,
		}

		var seen []any
		for range 5 {
			page, err := store.Query(ctx, q)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			for _, it := range page.Items {
				seen = append(seen, it["sk"])
			}
			if page.LastKey == nil {
				break
			}
			q.StartKey = page.LastKey
		}

		if len(seen) != 5 {
			t.Errorf("expected to page through 5 items, got %v", seen)
		}
	})

	t.Run("index", func(t *testing.T) {
		page, _ := store.Query(ctx, codebytes.Query{
			Index:        "gsi0",
			KeyAttribute: "gsi0_pk",
			KeyValue:     "https://x/get",
		})
		if len(page.Items) != 1 || page.Items[0]["sk"] != "SNIPPET~link" {
			t.Errorf("expected the linked snippet, got %v", page.Items)
		}
	})
}
