package codebytes

import (
	"context"
	"fmt"
	"strings"
)

// SharedSnippet is a grantee's capability record for another user's snippet.
// It is stored in the grantee's partition and written only by the owning
// snippet's cascades.
type SharedSnippet struct {
	doc   *Document
	table *Table
}

func (t *Table) sharedName(owner, name string) string {
	return owner + t.NameDelimiter + name
}

func (t *Table) sharedKey(owner, name, grantee string) Key {
	return Key{
		Partition: grantee,
		Sort:      SharedSnippetSchema.SortKey(t.KeyDelimiter, t.sharedName(owner, name)),
	}
}

// NewSharedSnippet builds the record granting g to g.User on owner's snippet name.
func (t *Table) NewSharedSnippet(ctx context.Context, owner, name string, g Grant) (*SharedSnippet, error) {
	if owner == "" {
		return nil, missingAttribute("owner")
	}
	if name == "" {
		return nil, missingAttribute(AttributeNameName)
	}

	doc, err := t.NewDocument(ctx, SharedSnippetSchema, Item{
		AttributeNameName: t.sharedName(owner, name),
		AttributeNameUser: g.User,
		"owner":           owner,
		"read":            g.Read,
		"write":           g.Write,
		"execute":         g.Execute,
	})
	if err != nil {
		return nil, err
	}
	return &SharedSnippet{doc: doc, table: t}, nil
}

// GetSharedSnippet fetches the record for owner's snippet name from user's
// partition. A missing record returns nil without error.
func (t *Table) GetSharedSnippet(ctx context.Context, name, owner, user string, opts ...func(*GetOptions)) (*SharedSnippet, error) {
	doc, err := t.Get(ctx, SharedSnippetSchema, t.sharedName(owner, name), user, opts...)
	if err != nil || doc == nil {
		return nil, err
	}
	return &SharedSnippet{doc: doc, table: t}, nil
}

// ListSharedSnippets lists the records in user's partition.
func (t *Table) ListSharedSnippets(ctx context.Context, user, cursor string) (*ListResult, error) {
	return t.List(ctx, ListQuery{Partition: user, Type: SharedSnippetSchema, Cursor: cursor})
}

func (s *SharedSnippet) Doc() *Document { return s.doc }

// Owner returns the owner of the shared snippet.
func (s *SharedSnippet) Owner() string { return s.doc.String("owner") }

// Grantee returns the user the snippet is shared with.
func (s *SharedSnippet) Grantee() string { return s.doc.User() }

// SnippetName returns the name of the shared snippet in its owner's partition.
func (s *SharedSnippet) SnippetName() string {
	return strings.TrimPrefix(s.doc.Name(), s.Owner()+s.table.NameDelimiter)
}

// Snippet returns the owner's snippet as seen by the grantee. The grantee
// must be able to read it.
func (s *SharedSnippet) Snippet(ctx context.Context) (*GrantedSnippet, error) {
	return s.resolve(ctx, OnBehalfOf(s.Grantee()))
}

func (s *SharedSnippet) resolve(ctx context.Context, opts ...func(*GetOptions)) (*GrantedSnippet, error) {
	snippet, err := s.table.GetSnippet(ctx, s.SnippetName(), s.Owner(), opts...)
	if err != nil {
		return nil, err
	}
	if snippet == nil {
		return nil, fmt.Errorf("%w: snippet %s of %s", ErrNotFound, s.SnippetName(), s.Owner())
	}

	return &GrantedSnippet{
		Snippet: snippet,
		Grantee: s.Grantee(),
		Grant:   GrantMap(snippet.Permissions())[s.Grantee()],
	}, nil
}

// Exec runs the owner's snippet if the grantee's current grant allows execute.
func (s *SharedSnippet) Exec(ctx context.Context) (any, error) {
	g, err := s.resolve(ctx, SkipAuth())
	if err != nil {
		return nil, err
	}
	return g.Exec(ctx)
}

// Update applies changes to the owner's snippet acting as the grantee.
func (s *SharedSnippet) Update(ctx context.Context, changes Item) error {
	g, err := s.resolve(ctx, SkipAuth())
	if err != nil {
		return err
	}
	return g.Update(ctx, changes)
}

// Delete always fails. Grants are removed by the owner changing the
// snippet's permissions or deleting the snippet.
func (s *SharedSnippet) Delete(context.Context) error {
	return fmt.Errorf("%w: shared snippet %s can only be removed by its owner", ErrForbidden, s.doc.Name())
}

// GrantedSnippet is a snippet accessed through a grantee's grant.
type GrantedSnippet struct {
	*Snippet
	Grantee string
	Grant   Grant
}

// Exec runs the snippet if the grant allows execute.
func (g *GrantedSnippet) Exec(ctx context.Context) (any, error) {
	if !g.Grant.Execute {
		return nil, fmt.Errorf("%w: %s may not execute %s", ErrNotAuthorized, g.Grantee, g.Name())
	}
	return g.execute(ctx)
}

// Update applies changes acting as the grantee, subject to the snippet's
// write permission for that user.
func (g *GrantedSnippet) Update(ctx context.Context, changes Item) error {
	return g.Snippet.Update(WithIdentity(ctx, User(g.Grantee)), changes)
}

// Delete always fails.
func (g *GrantedSnippet) Delete(context.Context) error {
	return fmt.Errorf("%w: %s may not delete %s", ErrForbidden, g.Grantee, g.Name())
}
