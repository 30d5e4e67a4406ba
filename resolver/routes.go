package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nisimpson/codebytes"
)

var hiddenAttributes = []string{
	codebytes.AttributeNamePartitionKey,
	codebytes.AttributeNameSortKey,
	codebytes.AttributeNameReadOnlyLink,
	codebytes.AttributeNameReadWriteLink,
}

// view returns the client-facing attributes of doc.
func view(doc *codebytes.Document) codebytes.Item {
	item := doc.Item()
	for _, name := range hiddenAttributes {
		delete(item, name)
	}
	return item
}

// Page is one page of listed entities.
type Page struct {
	Items []codebytes.Item `json:"items"`
	Count int              `json:"count"`
	Next  string           `json:"next,omitempty"`
}

func toPage(res *codebytes.ListResult) *Page {
	p := &Page{Items: make([]codebytes.Item, 0, len(res.Results)), Count: res.Count, Next: res.Next}
	for _, doc := range res.Results {
		p.Items = append(p.Items, view(doc))
	}
	return p
}

type snippetKey struct {
	Name string `json:"name"`
	User string `json:"user,omitempty"`
}

type sharedKey struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type listArgs struct {
	User   string `json:"user,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

type snippetChanges struct {
	Code        *string            `json:"code,omitempty"`
	Description *string            `json:"description,omitempty"`
	Public      *bool              `json:"public,omitempty"`
	Permissions *[]codebytes.Grant `json:"permissions,omitempty"`
}

func (c snippetChanges) item() codebytes.Item {
	changes := codebytes.Item{}
	if c.Code != nil {
		changes["code"] = *c.Code
	}
	if c.Description != nil {
		changes["description"] = *c.Description
	}
	if c.Public != nil {
		changes[codebytes.AttributeNamePublic] = *c.Public
	}
	if c.Permissions != nil {
		changes[codebytes.AttributeNamePermissions] = *c.Permissions
	}
	return changes
}

func (r *Resolver) lookupSnippet(ctx context.Context, key snippetKey) (*codebytes.Snippet, error) {
	if key.Name == "" {
		return nil, badRequest("name is required")
	}
	s, err := r.Table.GetSnippet(ctx, key.Name, key.User)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: snippet %s does not exist", codebytes.ErrNotFound, key.Name)
	}
	return s, nil
}

func (r *Resolver) lookupShared(ctx context.Context, key sharedKey) (*codebytes.SharedSnippet, error) {
	if key.Name == "" || key.Owner == "" {
		return nil, badRequest("name and owner are required")
	}
	s, err := r.Table.GetSharedSnippet(ctx, key.Name, key.Owner, "")
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: snippet %s of %s is not shared with you", codebytes.ErrNotFound, key.Name, key.Owner)
	}
	return s, nil
}

func (r *Resolver) createSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[codebytes.SnippetInput](args)
	if err != nil {
		return nil, err
	}
	if in.Runtime == "" {
		return nil, badRequest("runtime is required")
	}

	s, err := r.Table.NewSnippet(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Create(ctx); err != nil {
		return nil, err
	}
	return view(s.Doc()), nil
}

func (r *Resolver) getSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[snippetKey](args)
	if err != nil {
		return nil, err
	}
	s, err := r.lookupSnippet(ctx, key)
	if err != nil {
		return nil, err
	}
	return view(s.Doc()), nil
}

func (r *Resolver) getSnippetByLink(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[struct {
		Link string `json:"link"`
	}](args)
	if err != nil {
		return nil, err
	}
	if in.Link == "" {
		return nil, badRequest("link is required")
	}

	s, err := r.Table.FindSnippetByLink(ctx, in.Link)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no snippet at %s", codebytes.ErrNotFound, in.Link)
	}
	return view(s.Doc()), nil
}

func (r *Resolver) updateSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[struct {
		snippetKey
		snippetChanges
	}](args)
	if err != nil {
		return nil, err
	}

	changes := in.item()
	if len(changes) == 0 {
		return nil, badRequest("no changes given")
	}

	s, err := r.lookupSnippet(ctx, in.snippetKey)
	if err != nil {
		return nil, err
	}
	if err := s.Update(ctx, changes); err != nil {
		return nil, err
	}
	return view(s.Doc()), nil
}

func (r *Resolver) deleteSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[snippetKey](args)
	if err != nil {
		return nil, err
	}
	s, err := r.lookupSnippet(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx); err != nil {
		return nil, err
	}
	return view(s.Doc()), nil
}

func (r *Resolver) executeSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[snippetKey](args)
	if err != nil {
		return nil, err
	}
	s, err := r.lookupSnippet(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx)
}

func (r *Resolver) listSnippets(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[listArgs](args)
	if err != nil {
		return nil, err
	}
	res, err := r.Table.ListSnippets(ctx, in.User, in.Cursor)
	if err != nil {
		return nil, err
	}
	return toPage(res), nil
}

func (r *Resolver) getSharedSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[sharedKey](args)
	if err != nil {
		return nil, err
	}
	shared, err := r.lookupShared(ctx, key)
	if err != nil {
		return nil, err
	}

	granted, err := shared.Snippet(ctx)
	if err != nil {
		return nil, err
	}
	out := view(granted.Doc())
	out["grant"] = granted.Grant
	return out, nil
}

func (r *Resolver) executeSharedSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[sharedKey](args)
	if err != nil {
		return nil, err
	}
	shared, err := r.lookupShared(ctx, key)
	if err != nil {
		return nil, err
	}
	return shared.Exec(ctx)
}

func (r *Resolver) updateSharedSnippet(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[struct {
		sharedKey
		snippetChanges
	}](args)
	if err != nil {
		return nil, err
	}

	changes := in.item()
	if len(changes) == 0 {
		return nil, badRequest("no changes given")
	}

	shared, err := r.lookupShared(ctx, in.sharedKey)
	if err != nil {
		return nil, err
	}
	if err := shared.Update(ctx, changes); err != nil {
		return nil, err
	}

	granted, err := shared.Snippet(ctx)
	if err != nil {
		return nil, err
	}
	return view(granted.Doc()), nil
}

func (r *Resolver) listSharedSnippets(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[listArgs](args)
	if err != nil {
		return nil, err
	}
	res, err := r.Table.ListSharedSnippets(ctx, "", in.Cursor)
	if err != nil {
		return nil, err
	}
	return toPage(res), nil
}

// getRuntime looks in the given partition, or in the caller's partition and
// then the system catalog.
func (r *Resolver) getRuntime(ctx context.Context, args json.RawMessage) (any, error) {
	key, err := decode[snippetKey](args)
	if err != nil {
		return nil, err
	}
	if key.Name == "" {
		return nil, badRequest("name is required")
	}

	partitions := []string{key.User}
	if key.User == "" {
		partitions = []string{r.Table.Actor(ctx), r.Table.SystemUser}
	}

	for _, user := range partitions {
		rt, err := r.Table.GetRuntime(ctx, key.Name, user)
		if err != nil {
			return nil, err
		}
		if rt != nil {
			return view(rt.Doc()), nil
		}
	}
	return nil, fmt.Errorf("%w: runtime %s", codebytes.ErrNotFound, key.Name)
}

func (r *Resolver) listRuntimes(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := decode[listArgs](args)
	if err != nil {
		return nil, err
	}
	if in.User == "" {
		in.User = r.Table.SystemUser
	}
	res, err := r.Table.ListRuntimes(ctx, in.User, in.Cursor)
	if err != nil {
		return nil, err
	}
	return toPage(res), nil
}
