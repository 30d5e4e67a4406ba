package codebytes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// NewToken returns a random opaque identifier.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Table maps schema-bound documents onto a single-table Store and enforces
// the attribute and permission rules of every entity type.
type Table struct {
	Store            Store         // Backing key-value store
	Paginator        Paginator     // Continuation token storage for List
	Executor         Executor      // Execution engine used by runtimes
	Logger           *slog.Logger  // Defaults to a discarding logger
	Tick             Clock         // Function to get current time for stamps and expiry
	Token            func() string // Opaque name generator for public snippets
	KeyDelimiter     string        // Joins type and name into the sort key. Default is '~'.
	NameDelimiter    string        // Joins owner and snippet name of shared snippets. Default is '|'.
	AnonymousUser    string        // Partition and actor name of anonymous callers
	SystemUser       string        // Partition and actor name of the system identity
	PublicPartitions []string      // Partitions readable by everyone
	Indexes          map[string]string
	AppURL           string        // Base URL for share links
	LinkPath         string        // Path segment under AppURL for share links
	PublicSegment    string        // Owner segment of share links for public snippets
	DefaultTimeout   time.Duration // Execution timeout when none is given
	FreeSnippetTTL   time.Duration // Lifetime of anonymous and public snippets
}

// NewTable creates a new Table with default configuration.
func NewTable(store Store, opts ...func(*Table)) *Table {
	t := &Table{
		Store:            store,
		Paginator:        NewTablePaginator(store),
		Logger:           slog.New(slog.DiscardHandler),
		Tick:             DefaultClock,
		Token:            NewToken,
		KeyDelimiter:     "~",
		NameDelimiter:    "|",
		AnonymousUser:    "PUBLIC",
		SystemUser:       "SYSTEM",
		PublicPartitions: []string{"PUBLIC", "SYSTEM"},
		Indexes: map[string]string{
			IndexReadOnlyLink:  AttributeNameReadOnlyLink,
			IndexReadWriteLink: AttributeNameReadWriteLink,
		},
		LinkPath:       "snippets",
		PublicSegment:  "public",
		DefaultTimeout: 3 * time.Second,
		FreeSnippetTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Actor returns the name the identity in ctx acts under.
func (t *Table) Actor(ctx context.Context) string {
	id := IdentityFrom(ctx)
	switch {
	case id.IsSystem():
		return t.SystemUser
	case id.IsAnonymous():
		return t.AnonymousUser
	}
	return id.Name()
}

// principal returns the user permission checks run against. Anonymous
// callers all act in the anonymous partition, so they are never treated as
// the owner of a document there, nor as a grantee.
func (t *Table) principal(ctx context.Context) string {
	if IdentityFrom(ctx).IsAnonymous() {
		return ""
	}
	return t.Actor(ctx)
}

func (t *Table) authorize(doc *Document, perm Permission, actor string) error {
	if err := Authorize(doc, perm, actor, t.PublicPartitions); err != nil {
		t.Logger.Debug("permission denied",
			slog.String("actor", actor),
			slog.String("permission", string(perm)),
			slog.String("key", doc.SortKey()),
		)
		return err
	}
	return nil
}

// NewDocument builds a document of the given schema. The user attribute
// defaults to the acting user; nil values are skipped.
func (t *Table) NewDocument(ctx context.Context, schema *Schema, attrs Item) (*Document, error) {
	doc := newDocument(schema)
	if err := doc.Set(AttributeNameUser, t.Actor(ctx)); err != nil {
		return nil, err
	}

	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		if attrs[name] == nil {
			continue
		}
		if err := doc.Set(name, attrs[name]); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// GetOptions controls a Get.
type GetOptions struct {
	SkipAuth   bool   // Do not evaluate permissions
	OnBehalfOf string // Evaluate permissions for this user instead of the actor
}

// SkipAuth disables the read permission check of a Get.
func SkipAuth() func(*GetOptions) {
	return func(o *GetOptions) { o.SkipAuth = true }
}

// OnBehalfOf evaluates the read permission of a Get for user.
func OnBehalfOf(user string) func(*GetOptions) {
	return func(o *GetOptions) { o.OnBehalfOf = user }
}

// Get fetches the named document of schema from user's partition. An empty
// user means the actor's partition. A missing key returns a nil document and
// a nil error; a denied read returns ErrNotAuthorized.
func (t *Table) Get(ctx context.Context, schema *Schema, name, user string, opts ...func(*GetOptions)) (*Document, error) {
	var options GetOptions
	for _, opt := range opts {
		opt(&options)
	}

	if user == "" {
		user = t.Actor(ctx)
	}

	key := Key{Partition: user, Sort: schema.SortKey(t.KeyDelimiter, name)}
	item, err := t.Store.GetItem(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key.Sort, err)
	}
	if item == nil {
		return nil, nil
	}

	doc := LoadDocument(schema, item)
	if !options.SkipAuth {
		actor := options.OnBehalfOf
		if actor == "" {
			actor = t.principal(ctx)
		}
		if err := t.authorize(doc, PermissionRead, actor); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ListQuery selects documents for List.
type ListQuery struct {
	Index          string         // Index to query; empty queries the table
	Partition      string         // Partition value; on the table, empty means the actor
	Type           *Schema        // Restrict table queries to one entity type
	SortBeginsWith string         // Additional sort key prefix, after the type prefix
	Filter         map[string]any // Equality filters
	Cursor         string         // Continuation token from a previous result
	Limit          int            // Maximum number of items to evaluate
	OnBehalfOf     string         // Evaluate read permission for this user
}

// ListResult is one page of readable documents.
type ListResult struct {
	Results []*Document
	Count   int
	Next    string // Continuation token, empty when exhausted
}

// List queries the store and returns the documents the actor may read.
// Items are decoded with the schema registered for their type name.
func (t *Table) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	query := Query{
		Index:  q.Index,
		Filter: q.Filter,
		Limit:  q.Limit,
	}

	if q.Index == "" {
		query.KeyAttribute = AttributeNamePartitionKey
		query.SortAttribute = AttributeNameSortKey
		query.KeyValue = q.Partition
		if query.KeyValue == "" {
			query.KeyValue = t.Actor(ctx)
		}
		if query.KeyValue == t.AnonymousUser && !IdentityFrom(ctx).IsSystem() {
			return nil, fmt.Errorf("%w: the %s partition cannot be listed", ErrNotAuthorized, t.AnonymousUser)
		}
		if q.Type != nil {
			query.SortBeginsWith = q.Type.Type() + t.KeyDelimiter
		}
		query.SortBeginsWith += q.SortBeginsWith
	} else {
		attribute, ok := t.Indexes[q.Index]
		if !ok {
			return nil, fmt.Errorf("unknown index %s", q.Index)
		}
		query.KeyAttribute = attribute
		query.KeyValue = q.Partition
		if q.Type != nil {
			query.Filter = maps.Clone(q.Filter)
			if query.Filter == nil {
				query.Filter = make(map[string]any)
			}
			query.Filter[AttributeNameTypeName] = q.Type.TypeName()
		}
	}

	startKey, err := t.Paginator.StartKey(ctx, q.Cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}
	query.StartKey = startKey

	page, err := t.Store.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list: %w", err)
	}

	actor := q.OnBehalfOf
	if actor == "" {
		actor = t.principal(ctx)
	}

	result := &ListResult{Results: make([]*Document, 0, len(page.Items))}
	for _, item := range page.Items {
		doc := LoadDocument(SchemaFor(LoadDocument(BaseSchema, item).TypeName()), item)
		if Authorize(doc, PermissionRead, actor, t.PublicPartitions) != nil {
			continue
		}
		result.Results = append(result.Results, doc)
	}
	result.Count = len(result.Results)

	result.Next, err = t.Paginator.PageCursor(ctx, page.LastKey)
	if err != nil {
		return nil, fmt.Errorf("failed to store cursor: %w", err)
	}

	return result, nil
}

// CreateHook is invoked after a document is created.
type CreateHook interface {
	OnCreate(ctx context.Context) error
}

// UpdateHook is invoked after a document is updated. previous holds the
// state before changes were applied.
type UpdateHook interface {
	OnUpdate(ctx context.Context, previous *Document, changes Item) error
}

// DeleteHook is invoked after a document is deleted.
type DeleteHook interface {
	OnDelete(ctx context.Context) error
}

// CreateOptions controls a Create.
type CreateOptions struct {
	Overwrite bool // Replace an existing item instead of failing with ErrAlreadyExists
}

// Overwrite makes a Create replace any existing item at the key.
func Overwrite() func(*CreateOptions) {
	return func(o *CreateOptions) { o.Overwrite = true }
}

// Create stamps the keys, type name and audit attributes of e, validates the
// required attributes and writes it. Unless Overwrite is given the write
// fails with ErrAlreadyExists when the key is taken.
func (t *Table) Create(ctx context.Context, e Entity, opts ...func(*CreateOptions)) error {
	var options CreateOptions
	for _, opt := range opts {
		opt(&options)
	}

	doc := e.Doc()
	if doc.Name() == "" {
		return missingAttribute(AttributeNameName)
	}

	actor := t.Actor(ctx)
	if doc.User() == "" {
		if err := doc.Set(AttributeNameUser, actor); err != nil {
			return err
		}
	}

	stamp := Stamp{At: t.Tick(), By: actor}
	err := errors.Join(
		doc.Set(AttributeNamePartitionKey, doc.User()),
		doc.Set(AttributeNameSortKey, doc.schema.SortKey(t.KeyDelimiter, doc.Name())),
		doc.Set(AttributeNameTypeName, doc.schema.TypeName()),
		doc.Set(AttributeNameCreated, stamp),
		doc.Set(AttributeNameUpdated, stamp),
	)
	if err != nil {
		return err
	}

	if err := doc.validate(); err != nil {
		return err
	}

	cond := ConditionNotExists
	if options.Overwrite {
		cond = ConditionNone
	}

	if err := t.Store.PutItem(ctx, doc.Item(), cond); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, doc.PartitionKey(), doc.SortKey())
		}
		return fmt.Errorf("failed to create %s: %w", doc.SortKey(), err)
	}

	t.Logger.InfoContext(ctx, "document created",
		slog.String("pk", doc.PartitionKey()),
		slog.String("sk", doc.SortKey()),
		slog.String("actor", actor),
	)

	if hook, ok := e.(CreateHook); ok {
		return hook.OnCreate(ctx)
	}
	return nil
}

// Update applies changes to e and writes it back. Immutable attributes may
// only be "changed" to their current value; the actor needs write permission
// on the stored state; system items cannot be updated.
func (t *Table) Update(ctx context.Context, e Entity, changes Item) error {
	doc := e.Doc()
	actor := t.Actor(ctx)
	previous := doc.clone()

	names := slices.Sorted(maps.Keys(changes))
	for _, name := range names {
		if !doc.schema.Knows(name) {
			return unknownAttribute(name)
		}
		if doc.schema.IsImmutable(name) {
			current, _ := doc.Value(name)
			if !sameValue(current, changes[name]) {
				return immutableAttribute(name)
			}
		}
	}

	if err := t.authorize(previous, PermissionWrite, t.principal(ctx)); err != nil {
		return err
	}

	restore := func() { doc.attrs = previous.Item() }

	for _, name := range names {
		if err := doc.Set(name, changes[name]); err != nil {
			restore()
			return err
		}
	}

	if err := doc.Set(AttributeNameUpdated, Stamp{At: t.Tick(), By: actor}); err != nil {
		restore()
		return err
	}

	if err := doc.validate(); err != nil {
		restore()
		return err
	}

	if err := t.Store.PutItem(ctx, doc.Item(), ConditionNotSystem); err != nil {
		restore()
		if errors.Is(err, ErrConditionFailed) {
			return fmt.Errorf("%w: cannot update builtin item %s", ErrForbidden, doc.SortKey())
		}
		return fmt.Errorf("failed to update %s: %w", doc.SortKey(), err)
	}

	t.Logger.InfoContext(ctx, "document updated",
		slog.String("pk", doc.PartitionKey()),
		slog.String("sk", doc.SortKey()),
		slog.String("actor", actor),
		slog.Any("attributes", names),
	)

	if hook, ok := e.(UpdateHook); ok {
		return hook.OnUpdate(ctx, previous, changes)
	}
	return nil
}

// Delete removes e after checking the actor's write permission, then runs
// its delete hook.
func (t *Table) Delete(ctx context.Context, e Entity) error {
	doc := e.Doc()
	actor := t.Actor(ctx)

	if err := t.authorize(doc, PermissionWrite, t.principal(ctx)); err != nil {
		return err
	}

	if err := t.Store.DeleteItem(ctx, doc.Key()); err != nil {
		return fmt.Errorf("failed to delete %s: %w", doc.SortKey(), err)
	}

	t.Logger.InfoContext(ctx, "document deleted",
		slog.String("pk", doc.PartitionKey()),
		slog.String("sk", doc.SortKey()),
		slog.String("actor", actor),
	)

	if hook, ok := e.(DeleteHook); ok {
		return hook.OnDelete(ctx)
	}
	return nil
}
