// Package assert provides fluent assertion utilities for testing codebytes
// documents and stores.
//
// # Usage
//
//	import "github.com/nisimpson/codebytes/dynamock/assert"
//
//	// Assert on documents
//	assert.Document(t, snippet.Doc()).
//		HasName("demo").
//		HasUser("alice").
//		HasAttribute("public", false)
//
//	// Assert on the contents of a memory store
//	assert.Store(t, store).
//		HasCount(2).
//		HasSharedSnippet("bob", "alice", "demo")
//
//	// Assert on errors
//	assert.Error(t, err).
//		Is(codebytes.ErrImmutable).
//		NamesAttribute("runtime")
package assert

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/nisimpson/codebytes"
	"github.com/nisimpson/codebytes/dynamock"
)

func normalize(v any) any {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return v
	}
	return out
}

// DocumentAssertion provides fluent assertions for a document.
type DocumentAssertion struct {
	t   *testing.T
	doc *codebytes.Document
}

// Document creates a new DocumentAssertion. A nil document fails the test
// immediately.
func Document(t *testing.T, doc *codebytes.Document) *DocumentAssertion {
	t.Helper()
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}
	return &DocumentAssertion{t: t, doc: doc}
}

// HasName asserts the document name.
func (a *DocumentAssertion) HasName(expected string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.Name(); got != expected {
		a.t.Errorf("expected name %s, got %s", expected, got)
	}
	return a
}

// HasUser asserts the owning user of the document.
func (a *DocumentAssertion) HasUser(expected string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.User(); got != expected {
		a.t.Errorf("expected user %s, got %s", expected, got)
	}
	return a
}

// HasKey asserts the primary key of the document.
func (a *DocumentAssertion) HasKey(pk, sk string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.Key(); got.Partition != pk || got.Sort != sk {
		a.t.Errorf("expected key %s/%s, got %s/%s", pk, sk, got.Partition, got.Sort)
	}
	return a
}

// HasTypeName asserts the stamped type name.
func (a *DocumentAssertion) HasTypeName(expected string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.TypeName(); got != expected {
		a.t.Errorf("expected type name %s, got %s", expected, got)
	}
	return a
}

// HasAttribute asserts that the attribute equals expected after both pass
// through the DynamoDB attribute codec.
func (a *DocumentAssertion) HasAttribute(name string, expected any) *DocumentAssertion {
	a.t.Helper()
	got, ok := a.doc.Value(name)
	if !ok {
		a.t.Errorf("expected attribute %s to be set", name)
		return a
	}
	if want := normalize(expected); !reflect.DeepEqual(got, want) {
		a.t.Errorf("expected attribute %s to be %v, got %v", name, want, got)
	}
	return a
}

// LacksAttribute asserts that the attribute is not set.
func (a *DocumentAssertion) LacksAttribute(name string) *DocumentAssertion {
	a.t.Helper()
	if v, ok := a.doc.Value(name); ok {
		a.t.Errorf("expected attribute %s to be absent, got %v", name, v)
	}
	return a
}

// WasCreatedBy asserts the actor of the creation stamp.
func (a *DocumentAssertion) WasCreatedBy(user string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.Created().By; got != user {
		a.t.Errorf("expected document created by %s, got %s", user, got)
	}
	return a
}

// WasUpdatedBy asserts the actor of the last modification stamp.
func (a *DocumentAssertion) WasUpdatedBy(user string) *DocumentAssertion {
	a.t.Helper()
	if got := a.doc.Updated().By; got != user {
		a.t.Errorf("expected document updated by %s, got %s", user, got)
	}
	return a
}

// HasGrant asserts that the permission list holds an entry for user.
func (a *DocumentAssertion) HasGrant(user string) *DocumentAssertion {
	a.t.Helper()
	if _, ok := codebytes.GrantMap(a.doc.Grants())[user]; !ok {
		a.t.Errorf("expected a grant for %s", user)
	}
	return a
}

// StoreAssertion provides fluent assertions for the contents of a MemoryStore.
type StoreAssertion struct {
	t     *testing.T
	store *dynamock.MemoryStore
}

// Store creates a new StoreAssertion.
func Store(t *testing.T, store *dynamock.MemoryStore) *StoreAssertion {
	return &StoreAssertion{t: t, store: store}
}

// HasCount asserts the number of stored items.
func (a *StoreAssertion) HasCount(expected int) *StoreAssertion {
	a.t.Helper()
	if got := a.store.Len(); got != expected {
		a.t.Errorf("expected %d items, got %d", expected, got)
	}
	return a
}

func (a *StoreAssertion) contains(pk, sk string) bool {
	for _, item := range a.store.Items() {
		if item[codebytes.AttributeNamePartitionKey] == pk && item[codebytes.AttributeNameSortKey] == sk {
			return true
		}
	}
	return false
}

// Contains asserts that an item is stored at the key.
func (a *StoreAssertion) Contains(pk, sk string) *StoreAssertion {
	a.t.Helper()
	if !a.contains(pk, sk) {
		a.t.Errorf("expected to find item %s/%s", pk, sk)
	}
	return a
}

// NotContains asserts that no item is stored at the key.
func (a *StoreAssertion) NotContains(pk, sk string) *StoreAssertion {
	a.t.Helper()
	if a.contains(pk, sk) {
		a.t.Errorf("expected item %s/%s to be absent", pk, sk)
	}
	return a
}

func sharedSortKey(owner, name string) string {
	return codebytes.SharedSnippetSchema.SortKey("~", owner+"|"+name)
}

// HasSharedSnippet asserts that grantee holds a record for owner's snippet
// name. Default delimiters are assumed.
func (a *StoreAssertion) HasSharedSnippet(grantee, owner, name string) *StoreAssertion {
	a.t.Helper()
	if !a.contains(grantee, sharedSortKey(owner, name)) {
		a.t.Errorf("expected %s to hold a shared snippet for %s/%s", grantee, owner, name)
	}
	return a
}

// LacksSharedSnippet asserts that grantee holds no record for owner's snippet name.
func (a *StoreAssertion) LacksSharedSnippet(grantee, owner, name string) *StoreAssertion {
	a.t.Helper()
	if a.contains(grantee, sharedSortKey(owner, name)) {
		a.t.Errorf("expected %s to hold no shared snippet for %s/%s", grantee, owner, name)
	}
	return a
}

// ErrorAssertion provides fluent assertions for errors returned by codebytes.
type ErrorAssertion struct {
	t   *testing.T
	err error
}

// Error creates a new ErrorAssertion.
func Error(t *testing.T, err error) *ErrorAssertion {
	return &ErrorAssertion{t: t, err: err}
}

// IsNil asserts that there is no error.
func (a *ErrorAssertion) IsNil() *ErrorAssertion {
	a.t.Helper()
	if a.err != nil {
		a.t.Errorf("expected no error, got %v", a.err)
	}
	return a
}

// Is asserts that the error matches target.
func (a *ErrorAssertion) Is(target error) *ErrorAssertion {
	a.t.Helper()
	if !errors.Is(a.err, target) {
		a.t.Errorf("expected error %v, got %v", target, a.err)
	}
	return a
}

// NamesAttribute asserts that the error is an *codebytes.AttributeError for name.
func (a *ErrorAssertion) NamesAttribute(name string) *ErrorAssertion {
	a.t.Helper()
	var attrErr *codebytes.AttributeError
	if !errors.As(a.err, &attrErr) {
		a.t.Errorf("expected an attribute error, got %v", a.err)
		return a
	}
	if attrErr.Attribute != name {
		a.t.Errorf("expected error to name %s, got %s", name, attrErr.Attribute)
	}
	return a
}
