package dynamock

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/nisimpson/codebytes"
)

// MemoryStore is an in-memory codebytes.Store with the conditional write and
// query semantics of the DynamoDB table. Items pass through the DynamoDB
// attribute codec on the way in and out.
type MemoryStore struct {
	// FailPut, when set, is consulted before every put. A non-nil error is
	// returned instead of writing.
	FailPut func(item codebytes.Item) error

	mu    sync.Mutex
	items map[codebytes.Key]codebytes.Item
}

var _ codebytes.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[codebytes.Key]codebytes.Item)}
}

func roundTrip(item codebytes.Item) (codebytes.Item, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, err
	}
	var out codebytes.Item
	if err := attributevalue.UnmarshalMap(av, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func itemKey(item codebytes.Item) (codebytes.Key, error) {
	pk, _ := item[codebytes.AttributeNamePartitionKey].(string)
	sk, _ := item[codebytes.AttributeNameSortKey].(string)
	if pk == "" || sk == "" {
		return codebytes.Key{}, fmt.Errorf("item is missing its key attributes")
	}
	return codebytes.Key{Partition: pk, Sort: sk}, nil
}

// GetItem implements codebytes.Store.
func (m *MemoryStore) GetItem(ctx context.Context, key codebytes.Key) (codebytes.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return roundTrip(item)
}

// PutItem implements codebytes.Store.
func (m *MemoryStore) PutItem(ctx context.Context, item codebytes.Item, cond codebytes.Condition) error {
	if m.FailPut != nil {
		if err := m.FailPut(item); err != nil {
			return err
		}
	}

	key, err := itemKey(item)
	if err != nil {
		return err
	}

	stored, err := roundTrip(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.items[key]
	switch cond {
	case codebytes.ConditionNotExists:
		if exists {
			return fmt.Errorf("%w: %s", codebytes.ErrConditionFailed, cond)
		}
	case codebytes.ConditionNotSystem:
		if system, _ := existing[codebytes.AttributeNameSystem].(bool); system {
			return fmt.Errorf("%w: %s", codebytes.ErrConditionFailed, cond)
		}
	}

	m.items[key] = stored
	return nil
}

// DeleteItem implements codebytes.Store.
func (m *MemoryStore) DeleteItem(ctx context.Context, key codebytes.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Query implements codebytes.Store. Table queries are ordered by sort key,
// index queries by partition then sort key. Limit counts items evaluated
// before filtering, as DynamoDB does.
func (m *MemoryStore) Query(ctx context.Context, q codebytes.Query) (codebytes.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []codebytes.Item
	for _, item := range m.items {
		if value, _ := item[q.KeyAttribute].(string); value != q.KeyValue {
			continue
		}
		if q.SortBeginsWith != "" {
			sort, _ := item[q.SortAttribute].(string)
			if len(sort) < len(q.SortBeginsWith) || sort[:len(q.SortBeginsWith)] != q.SortBeginsWith {
				continue
			}
		}
		matched = append(matched, item)
	}

	slices.SortFunc(matched, compareItems)

	if len(q.StartKey) > 0 {
		start := codebytes.Item{}
		for k, v := range q.StartKey {
			start[k] = v
		}
		idx := slices.IndexFunc(matched, func(item codebytes.Item) bool {
			return compareItems(item, start) > 0
		})
		if idx < 0 {
			idx = len(matched)
		}
		matched = matched[idx:]
	}

	var page codebytes.Page
	evaluated := matched
	if q.Limit > 0 && len(matched) > q.Limit {
		evaluated = matched[:q.Limit]
		last := evaluated[len(evaluated)-1]
		page.LastKey = map[string]string{
			codebytes.AttributeNamePartitionKey: last[codebytes.AttributeNamePartitionKey].(string),
			codebytes.AttributeNameSortKey:      last[codebytes.AttributeNameSortKey].(string),
		}
		if q.Index != "" {
			page.LastKey[q.KeyAttribute] = q.KeyValue
		}
	}

	page.Items = make([]codebytes.Item, 0, len(evaluated))
	for _, item := range evaluated {
		if !matchesFilter(item, q.Filter) {
			continue
		}
		out, err := roundTrip(item)
		if err != nil {
			return codebytes.Page{}, err
		}
		page.Items = append(page.Items, out)
	}
	return page, nil
}

func compareItems(a, b codebytes.Item) int {
	str := func(item codebytes.Item, name string) string {
		s, _ := item[name].(string)
		return s
	}
	return cmp.Or(
		cmp.Compare(str(a, codebytes.AttributeNamePartitionKey), str(b, codebytes.AttributeNamePartitionKey)),
		cmp.Compare(str(a, codebytes.AttributeNameSortKey), str(b, codebytes.AttributeNameSortKey)),
	)
}

func matchesFilter(item codebytes.Item, filter map[string]any) bool {
	for name, want := range filter {
		got, ok := item[name]
		if !ok {
			return false
		}
		normalized, err := roundTrip(codebytes.Item{"v": want})
		if err != nil || !reflect.DeepEqual(got, normalized["v"]) {
			return false
		}
	}
	return true
}

// Items returns a copy of every stored item, ordered by key.
func (m *MemoryStore) Items() []codebytes.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]codebytes.Item, 0, len(m.items))
	for _, item := range m.items {
		out, _ := roundTrip(item)
		items = append(items, out)
	}
	slices.SortFunc(items, compareItems)
	return items
}

// Len returns the number of stored items.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
