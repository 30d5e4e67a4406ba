package codebytes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// SnippetInput describes a snippet to create.
type SnippetInput struct {
	Name        string  `json:"name,omitempty"`
	Runtime     string  `json:"runtime"`
	Code        string  `json:"code"`
	Public      bool    `json:"public,omitempty"`
	Description string  `json:"description,omitempty"`
	Permissions []Grant `json:"permissions,omitempty"`
}

// Snippet is a stored piece of code owned by a user.
type Snippet struct {
	doc     *Document
	table   *Table
	runtime *Runtime // resolved on first Exec

	replaced *Document // stored snippet overwritten by Create
}

// NewSnippet builds an unsaved snippet for the acting user. Public or
// unnamed snippets get an opaque generated name; callers without a user
// identity always get a public snippet owned by the anonymous partition.
func (t *Table) NewSnippet(ctx context.Context, in SnippetInput) (*Snippet, error) {
	grants := in.Permissions
	if grants == nil {
		grants = []Grant{}
	}

	attrs := Item{
		"runtime":                in.Runtime,
		"code":                   in.Code,
		AttributeNamePublic:      in.Public,
		AttributeNamePermissions: grants,
	}
	if in.Name != "" {
		attrs[AttributeNameName] = in.Name
	}
	if in.Description != "" {
		attrs["description"] = in.Description
	}

	doc, err := t.NewDocument(ctx, SnippetSchema, attrs)
	if err != nil {
		return nil, err
	}

	s := &Snippet{doc: doc, table: t}
	if err := s.derive(false); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSnippet fetches a snippet from user's partition. A missing snippet
// returns nil without error.
func (t *Table) GetSnippet(ctx context.Context, name, user string, opts ...func(*GetOptions)) (*Snippet, error) {
	doc, err := t.Get(ctx, SnippetSchema, name, user, opts...)
	if err != nil || doc == nil {
		return nil, err
	}
	return &Snippet{doc: doc, table: t}, nil
}

// ListSnippets lists the snippets in user's partition that the actor may read.
func (t *Table) ListSnippets(ctx context.Context, user, cursor string) (*ListResult, error) {
	return t.List(ctx, ListQuery{Partition: user, Type: SnippetSchema, Cursor: cursor})
}

// FindSnippetByLink looks a snippet up by one of its share links. Links
// ending in "/edit" are resolved on the read-write index.
func (t *Table) FindSnippetByLink(ctx context.Context, link string) (*Snippet, error) {
	index := IndexReadOnlyLink
	if strings.HasSuffix(link, "/edit") {
		index = IndexReadWriteLink
	}

	res, err := t.List(ctx, ListQuery{Index: index, Partition: link, Type: SnippetSchema})
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	return &Snippet{doc: res.Results[0], table: t}, nil
}

func (s *Snippet) Doc() *Document { return s.doc }

func (s *Snippet) Name() string          { return s.doc.Name() }
func (s *Snippet) User() string          { return s.doc.User() }
func (s *Snippet) Code() string          { return s.doc.String("code") }
func (s *Snippet) RuntimeName() string   { return s.doc.String("runtime") }
func (s *Snippet) Public() bool          { return s.doc.Bool(AttributeNamePublic) }
func (s *Snippet) Description() string   { return s.doc.String("description") }
func (s *Snippet) ReadOnlyLink() string  { return s.doc.String("roUrl") }
func (s *Snippet) ReadWriteLink() string { return s.doc.String("rwUrl") }
func (s *Snippet) Permissions() []Grant  { return s.doc.Grants() }

// Expires returns the expiry in epoch seconds, or 0 if the snippet does not expire.
func (s *Snippet) Expires() int64 { return s.doc.Int64(AttributeNameExpires) }

func (s *Snippet) anonymous() bool {
	user := s.doc.User()
	return user == "" || user == s.table.AnonymousUser || user == s.table.SystemUser
}

// derive computes visibility, name, share links and, when expire is set,
// the ttl of the snippet from its current attributes.
func (s *Snippet) derive(expire bool) error {
	t := s.table

	anonymous := s.anonymous()
	public := anonymous || s.Public()

	if anonymous {
		if err := s.doc.Set(AttributeNameUser, t.AnonymousUser); err != nil {
			return err
		}
	}

	name := s.doc.Name()
	if public || name == "" {
		name = t.Token()
	}

	segment := s.doc.User()
	if public {
		segment = t.PublicSegment
	}

	link := fmt.Sprintf("%s/%s/%s/%s", strings.TrimSuffix(t.AppURL, "/"), t.LinkPath, segment, url.PathEscape(name))

	err := errors.Join(
		s.doc.Set(AttributeNamePublic, public),
		s.doc.Set(AttributeNameName, name),
		s.doc.Set("roUrl", link+"/get"),
		s.doc.Set("rwUrl", link+"/edit"),
	)
	if err != nil {
		return err
	}

	if public && expire {
		ttl := t.Tick().Add(t.FreeSnippetTTL).Unix()
		if err := s.doc.Set(AttributeNameExpires, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Create stores the snippet and a SharedSnippet record per grant. Public and
// anonymous snippets get a fresh name and an expiry. An existing snippet with
// the same name is overwritten and the records of its grants are reconciled
// with the new permission list.
func (s *Snippet) Create(ctx context.Context) error {
	if err := s.derive(true); err != nil {
		return err
	}

	key := Key{Partition: s.User(), Sort: SnippetSchema.SortKey(s.table.KeyDelimiter, s.Name())}
	item, err := s.table.Store.GetItem(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key.Sort, err)
	}
	if item != nil {
		s.replaced = LoadDocument(SnippetSchema, item)
	}
	defer func() { s.replaced = nil }()

	return s.table.Create(ctx, s, Overwrite())
}

// owned reports whether the caller in ctx owns the snippet. Anonymous
// callers own nothing.
func (s *Snippet) owned(ctx context.Context) bool {
	actor := s.table.principal(ctx)
	return actor != "" && actor == s.User()
}

// Update applies changes to the snippet. Permissions can only be changed by
// the owner; visibility is fixed at creation.
func (s *Snippet) Update(ctx context.Context, changes Item) error {
	_, permissions := changes[AttributeNamePermissions]
	_, public := changes[AttributeNamePublic]
	if (permissions || public) && !s.owned(ctx) {
		return fmt.Errorf("%w: only the owner may change sharing of %s", ErrNotAuthorized, s.Name())
	}
	return s.table.Update(ctx, s, changes)
}

// Delete removes the snippet and every SharedSnippet record derived from it.
// Only the owner may delete a snippet, whatever grants others hold.
func (s *Snippet) Delete(ctx context.Context) error {
	if !s.owned(ctx) {
		return fmt.Errorf("%w: only the owner may delete %s", ErrNotAuthorized, s.Name())
	}
	return s.table.Delete(ctx, s)
}

// Runtime resolves the runtime the snippet runs on. The owner's partition is
// searched first, then the system catalog. The result is cached on s.
func (s *Snippet) Runtime(ctx context.Context) (*Runtime, error) {
	if s.runtime != nil {
		return s.runtime, nil
	}

	for _, user := range []string{s.User(), s.table.SystemUser} {
		rt, err := s.table.GetRuntime(ctx, s.RuntimeName(), user, SkipAuth())
		if err != nil {
			return nil, err
		}
		if rt != nil {
			s.runtime = rt
			return rt, nil
		}
	}
	return nil, fmt.Errorf("%w: runtime %s", ErrNotFound, s.RuntimeName())
}

// Exec runs the snippet's code on its runtime. The actor needs execute
// permission on the snippet.
func (s *Snippet) Exec(ctx context.Context) (any, error) {
	if err := s.table.authorize(s.doc, PermissionExecute, s.table.principal(ctx)); err != nil {
		return nil, err
	}
	return s.execute(ctx)
}

func (s *Snippet) execute(ctx context.Context) (any, error) {
	rt, err := s.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, s.Code(), 0)
}

// OnCreate implements CreateHook. When Create replaced a stored snippet the
// records are reconciled against its grants instead.
func (s *Snippet) OnCreate(ctx context.Context) error {
	var before map[string]Grant
	if s.replaced != nil {
		before = GrantMap(s.replaced.Grants())
	}
	return s.reconcile(ctx, before)
}

// OnUpdate implements UpdateHook. Only a change to the permission list
// touches SharedSnippet records.
func (s *Snippet) OnUpdate(ctx context.Context, previous *Document, changes Item) error {
	if _, ok := changes[AttributeNamePermissions]; !ok {
		return nil
	}
	return s.reconcile(ctx, GrantMap(previous.Grants()))
}

// reconcile brings SharedSnippet records from the before grants to the
// current ones: revoked grantees lose their record, new and changed grants
// are written, unchanged ones are left alone.
func (s *Snippet) reconcile(ctx context.Context, before map[string]Grant) error {
	after := GrantMap(s.Permissions())

	var errs []error
	for _, user := range slices.Sorted(maps.Keys(before)) {
		if _, ok := after[user]; !ok {
			errs = append(errs, s.deleteShared(ctx, user))
		}
	}
	for _, user := range slices.Sorted(maps.Keys(after)) {
		if old, ok := before[user]; ok && old == after[user] {
			continue
		}
		errs = append(errs, s.putShared(ctx, after[user]))
	}
	return s.cascadeError(ctx, errs)
}

// OnDelete implements DeleteHook.
func (s *Snippet) OnDelete(ctx context.Context) error {
	grants := GrantMap(s.Permissions())

	var errs []error
	for _, user := range slices.Sorted(maps.Keys(grants)) {
		errs = append(errs, s.deleteShared(ctx, user))
	}
	return s.cascadeError(ctx, errs)
}

func (s *Snippet) putShared(ctx context.Context, g Grant) error {
	if g.User == "" {
		return nil
	}
	shared, err := s.table.NewSharedSnippet(ctx, s.User(), s.Name(), g)
	if err != nil {
		return err
	}
	return s.table.Create(ctx, shared, Overwrite())
}

func (s *Snippet) deleteShared(ctx context.Context, grantee string) error {
	if grantee == "" {
		return nil
	}
	key := s.table.sharedKey(s.User(), s.Name(), grantee)
	if err := s.table.Store.DeleteItem(ctx, key); err != nil {
		return fmt.Errorf("failed to delete grant for %s: %w", grantee, err)
	}
	return nil
}

func (s *Snippet) cascadeError(ctx context.Context, errs []error) error {
	err := errors.Join(errs...)
	if err == nil {
		return nil
	}
	s.table.Logger.WarnContext(ctx, "grant cascade incomplete",
		slog.String("owner", s.User()),
		slog.String("snippet", s.Name()),
		slog.Any("error", err),
	)
	return fmt.Errorf("%w: %w", ErrCascade, err)
}
