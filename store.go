package codebytes

import "context"

// Key addresses one item in the table.
type Key struct {
	Partition string // pk
	Sort      string // sk
}

// Condition guards a conditional put.
type Condition int

const (
	// ConditionNone writes unconditionally.
	ConditionNone Condition = iota
	// ConditionNotExists succeeds only if no item exists at the key.
	ConditionNotExists
	// ConditionNotSystem succeeds only if the stored item is not flagged system.
	ConditionNotSystem
)

func (c Condition) String() string {
	switch c {
	case ConditionNotExists:
		return "not-exists"
	case ConditionNotSystem:
		return "not-system"
	}
	return "none"
}

// Query selects items by partition value on the table or one of its indexes.
type Query struct {
	Index          string         // Index name; empty queries the table
	KeyAttribute   string         // Partition attribute of the table or index
	KeyValue       string         // Partition value to match
	SortAttribute  string         // Sort attribute used by SortBeginsWith
	SortBeginsWith string         // Optional sort key prefix
	Filter         map[string]any // Optional equality filters, applied after the key condition
	Limit          int            // Maximum number of items to evaluate
	StartKey       map[string]string
}

// Page is one page of query results.
type Page struct {
	Items   []Item
	LastKey map[string]string // nil when the query is exhausted
}

// Store is the single-table key-value store the mapper writes to.
type Store interface {
	// GetItem returns the item at key, or a nil item if it does not exist.
	GetItem(ctx context.Context, key Key) (Item, error)
	// PutItem writes item if cond holds. A rejected condition returns an
	// error wrapping ErrConditionFailed.
	PutItem(ctx context.Context, item Item, cond Condition) error
	// DeleteItem removes the item at key. Deleting a missing key is not an error.
	DeleteItem(ctx context.Context, key Key) error
	// Query returns one page of items matching q.
	Query(ctx context.Context, q Query) (Page, error)
}
