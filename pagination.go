package codebytes

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided last key. Implementors
	// should return an empty token if the key is nil or empty.
	PageCursor(ctx context.Context, lastKey map[string]string) (string, error)
	// StartKey returns the key stored for cursor. Implementors should return a
	// nil key if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (map[string]string, error)
}

// CursorPartition is the partition holding stored page cursors.
const CursorPartition = "PAGE"

// TablePaginator implements Paginator by storing last keys in the same table,
// one item per cursor, expiring after TTL.
type TablePaginator struct {
	Store Store
	TTL   time.Duration
	Tick  Clock
}

// NewTablePaginator returns a TablePaginator with a 24 hour cursor lifetime.
func NewTablePaginator(store Store) *TablePaginator {
	return &TablePaginator{Store: store, TTL: 24 * time.Hour, Tick: DefaultClock}
}

func cursorKey(cursor string) Key {
	return Key{Partition: CursorPartition, Sort: CursorPartition + "~" + cursor}
}

// PageCursor implements Paginator. The key is gob encoded and stored under a
// freshly generated cursor id.
func (p *TablePaginator) PageCursor(ctx context.Context, lastKey map[string]string) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastKey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}

	cursor := xid.New().String()
	key := cursorKey(cursor)
	item := Item{
		AttributeNamePartitionKey: key.Partition,
		AttributeNameSortKey:      key.Sort,
		"key":                     buf.Bytes(),
		AttributeNameExpires:      p.Tick().Add(p.TTL).Unix(),
	}

	if err := p.Store.PutItem(ctx, item, ConditionNone); err != nil {
		return "", fmt.Errorf("failed to store page cursor: %w", err)
	}

	return cursor, nil
}

// StartKey implements Paginator. Unknown or expired cursors yield a nil key.
func (p *TablePaginator) StartKey(ctx context.Context, cursor string) (map[string]string, error) {
	if cursor == "" {
		return nil, nil
	}

	item, err := p.Store.GetItem(ctx, cursorKey(cursor))
	if err != nil {
		return nil, fmt.Errorf("failed to get page cursor: %w", err)
	}
	if item == nil {
		return nil, nil
	}

	// expiry is lazy in dynamodb; stale cursors may still be readable
	if expires := LoadDocument(BaseSchema, item).Int64(AttributeNameExpires); expires > 0 && expires < p.Tick().Unix() {
		return nil, nil
	}

	data, _ := item["key"].([]byte)
	if len(data) == 0 {
		return nil, nil
	}

	var lastKey map[string]string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&lastKey); err != nil {
		return nil, fmt.Errorf("failed to decode last key: %w", err)
	}
	return lastKey, nil
}
