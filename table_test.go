package codebytes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nisimpson/codebytes"
	"github.com/nisimpson/codebytes/dynamock"
	"github.com/nisimpson/codebytes/dynamock/assert"
)

func userContext(name string) context.Context {
	return codebytes.WithIdentity(context.Background(), codebytes.User(name))
}

func systemContext() context.Context {
	return codebytes.WithIdentity(context.Background(), codebytes.System)
}

func createRuntime(t *testing.T, ctx context.Context, table *codebytes.Table, opts ...dynamock.RuntimeOption) *codebytes.Runtime {
	t.Helper()
	rt, err := table.NewRuntime(ctx, dynamock.NewRuntimeInput(opts...))
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	if err := rt.Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return rt
}

func TestTable_CreateAndGet(t *testing.T) {
	store := dynamock.NewMemoryStore()
	table := dynamock.NewTable(store)
	alice := userContext("alice")

	createRuntime(t, alice, table, dynamock.WithRequirements("numpy"))

	doc, err := table.Get(alice, codebytes.RuntimeSchema, "python38", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc == nil {
		t.Fatal("Expected document, got nil")
	}

	assert.Document(t, doc).
		HasKey("alice", "RUNTIME~python38").
		HasUser("alice").
		HasTypeName("Runtime").
		HasAttribute("requirements", []string{"numpy"}).
		WasCreatedBy("alice").
		WasUpdatedBy("alice")

	if !doc.Created().At.Equal(dynamock.Epoch) {
		t.Errorf("Expected created at %v, got %v", dynamock.Epoch, doc.Created().At)
	}
}

func TestTable_Create(t *testing.T) {
	t.Run("existing key", func(t *testing.T) {
		table := dynamock.NewTable(dynamock.NewMemoryStore())
		alice := userContext("alice")
		createRuntime(t, alice, table)

		rt, _ := table.NewRuntime(alice, dynamock.NewRuntimeInput())
		assert.Error(t, rt.Create(alice)).Is(codebytes.ErrAlreadyExists)
	})

	t.Run("overwrite", func(t *testing.T) {
		table := dynamock.NewTable(dynamock.NewMemoryStore())
		alice := userContext("alice")
		createRuntime(t, alice, table)

		rt, _ := table.NewRuntime(alice, dynamock.NewRuntimeInput(dynamock.WithARN("arn:other")))
		assert.Error(t, rt.Create(alice, codebytes.Overwrite())).IsNil()

		got, _ := table.GetRuntime(alice, "python38", "")
		if got.ARN() != "arn:other" {
			t.Errorf("Expected overwritten arn, got %s", got.ARN())
		}
	})

	t.Run("missing name", func(t *testing.T) {
		store := dynamock.NewMemoryStore()
		table := dynamock.NewTable(store)
		alice := userContext("alice")

		rt, _ := table.NewRuntime(alice, dynamock.NewRuntimeInput(dynamock.WithRuntimeName("")))
		assert.Error(t, rt.Create(alice)).Is(codebytes.ErrValidation).NamesAttribute("name")
		assert.Store(t, store).HasCount(0)
	})

	t.Run("store failure", func(t *testing.T) {
		store := dynamock.NewMemoryStore()
		store.FailPut = func(codebytes.Item) error { return errors.New("throttled") }
		table := dynamock.NewTable(store)
		alice := userContext("alice")

		rt, _ := table.NewRuntime(alice, dynamock.NewRuntimeInput())
		err := rt.Create(alice)
		if err == nil || errors.Is(err, codebytes.ErrAlreadyExists) {
			t.Errorf("Expected a store error, got %v", err)
		}
	})
}

func TestTable_Get(t *testing.T) {
	table := dynamock.NewTable(dynamock.NewMemoryStore())
	alice := userContext("alice")
	bob := userContext("bob")
	createRuntime(t, alice, table)

	t.Run("missing key", func(t *testing.T) {
		doc, err := table.Get(alice, codebytes.RuntimeSchema, "nope", "")
		if doc != nil || err != nil {
			t.Errorf("Expected nil, nil; got %v, %v", doc, err)
		}
	})

	t.Run("private to stranger", func(t *testing.T) {
		_, err := table.Get(bob, codebytes.RuntimeSchema, "python38", "alice")
		assert.Error(t, err).Is(codebytes.ErrNotAuthorized)
	})

	t.Run("skip auth", func(t *testing.T) {
		doc, err := table.Get(bob, codebytes.RuntimeSchema, "python38", "alice", codebytes.SkipAuth())
		if err != nil || doc == nil {
			t.Errorf("Expected document, got %v, %v", doc, err)
		}
	})

	t.Run("on behalf of owner", func(t *testing.T) {
		doc, err := table.Get(bob, codebytes.RuntimeSchema, "python38", "alice", codebytes.OnBehalfOf("alice"))
		if err != nil || doc == nil {
			t.Errorf("Expected document, got %v, %v", doc, err)
		}
	})

	t.Run("system catalog is readable", func(t *testing.T) {
		createRuntime(t, systemContext(), table, dynamock.WithRuntimeName("node18"), dynamock.System())
		rt, err := table.GetRuntime(bob, "node18", "SYSTEM")
		if err != nil || rt == nil {
			t.Fatalf("Expected runtime, got %v, %v", rt, err)
		}
		if !rt.System() {
			t.Error("Expected system runtime")
		}
	})
}

func TestTable_Update(t *testing.T) {
	setup := func(t *testing.T) (*codebytes.Table, *codebytes.Runtime) {
		table := dynamock.NewTable(dynamock.NewMemoryStore())
		return table, createRuntime(t, userContext("alice"), table)
	}

	t.Run("mutable attribute", func(t *testing.T) {
		table, rt := setup(t)
		bumped := dynamock.Epoch.Add(1)
		table.Tick = dynamock.FixedClock(bumped)

		if err := rt.Update(userContext("alice"), codebytes.Item{"description": "py"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, _ := table.GetRuntime(userContext("alice"), "python38", "")
		if got.Description() != "py" {
			t.Errorf("Expected stored description py, got %q", got.Description())
		}
		if !got.Doc().Updated().At.Equal(bumped) || !got.Doc().Created().At.Equal(dynamock.Epoch) {
			t.Errorf("Unexpected stamps %v / %v", got.Doc().Created(), got.Doc().Updated())
		}
	})

	t.Run("immutable attribute", func(t *testing.T) {
		_, rt := setup(t)
		err := rt.Update(userContext("alice"), codebytes.Item{"arn": "arn:other"})
		assert.Error(t, err).Is(codebytes.ErrImmutable).NamesAttribute("arn")
	})

	t.Run("immutable attribute with current value", func(t *testing.T) {
		_, rt := setup(t)
		err := rt.Update(userContext("alice"), codebytes.Item{"arn": rt.ARN(), "description": "same arn"})
		assert.Error(t, err).IsNil()
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, rt := setup(t)
		err := rt.Update(userContext("alice"), codebytes.Item{"color": "red"})
		assert.Error(t, err).Is(codebytes.ErrValidation).NamesAttribute("color")
	})

	t.Run("stranger", func(t *testing.T) {
		_, rt := setup(t)
		err := rt.Update(userContext("bob"), codebytes.Item{"description": "mine"})
		assert.Error(t, err).Is(codebytes.ErrNotAuthorized)
		if rt.Description() != "" {
			t.Errorf("Expected description unchanged, got %q", rt.Description())
		}
	})

	t.Run("system item", func(t *testing.T) {
		table := dynamock.NewTable(dynamock.NewMemoryStore())
		rt := createRuntime(t, systemContext(), table, dynamock.System())

		err := rt.Update(systemContext(), codebytes.Item{"description": "patched"})
		assert.Error(t, err).Is(codebytes.ErrForbidden)
		if rt.Description() != "" {
			t.Errorf("Expected description restored, got %q", rt.Description())
		}
	})
}

func TestTable_Delete(t *testing.T) {
	store := dynamock.NewMemoryStore()
	table := dynamock.NewTable(store)
	rt := createRuntime(t, userContext("alice"), table)

	assert.Error(t, table.Delete(userContext("bob"), rt)).Is(codebytes.ErrNotAuthorized)
	assert.Store(t, store).Contains("alice", "RUNTIME~python38")

	assert.Error(t, table.Delete(userContext("alice"), rt)).IsNil()
	assert.Store(t, store).NotContains("alice", "RUNTIME~python38")
}

func TestTable_List(t *testing.T) {
	store := dynamock.NewMemoryStore()
	table := dynamock.NewTable(store)
	alice := userContext("alice")

	var public string
	for _, in := range []codebytes.SnippetInput{
		dynamock.NewSnippetInput(dynamock.WithName("a")),
		dynamock.NewSnippetInput(dynamock.WithName("b")),
		dynamock.NewSnippetInput(dynamock.Public()),
	} {
		s, err := table.NewSnippet(alice, in)
		if err != nil {
			t.Fatalf("NewSnippet failed: %v", err)
		}
		if err := s.Create(alice); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if s.Public() {
			public = s.Name()
		}
	}
	createRuntime(t, alice, table)

	t.Run("pages through the owner's snippets", func(t *testing.T) {
		first, err := table.List(alice, codebytes.ListQuery{Type: codebytes.SnippetSchema, Limit: 2})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if first.Count != 2 || first.Next == "" {
			t.Fatalf("Expected 2 results and a cursor, got %d, %q", first.Count, first.Next)
		}
		if first.Results[0].Name() != "a" || first.Results[1].Name() != "b" {
			t.Errorf("Unexpected order %s, %s", first.Results[0].Name(), first.Results[1].Name())
		}

		second, err := table.List(alice, codebytes.ListQuery{Type: codebytes.SnippetSchema, Limit: 2, Cursor: first.Next})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if second.Count != 1 || second.Next != "" {
			t.Fatalf("Expected last page with 1 result, got %d, %q", second.Count, second.Next)
		}
		if second.Results[0].Name() != public {
			t.Errorf("Expected public snippet, got %s", second.Results[0].Name())
		}
	})

	t.Run("drops unreadable documents", func(t *testing.T) {
		res, err := table.ListSnippets(userContext("bob"), "alice", "")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if res.Count != 1 || !res.Results[0].Bool("public") {
			t.Errorf("Expected only the public snippet, got %d results", res.Count)
		}
	})

	t.Run("restricts to type", func(t *testing.T) {
		res, err := table.ListRuntimes(alice, "", "")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if res.Count != 1 || res.Results[0].TypeName() != "Runtime" {
			t.Errorf("Expected one runtime, got %d results", res.Count)
		}
	})

	t.Run("unknown index", func(t *testing.T) {
		if _, err := table.List(alice, codebytes.ListQuery{Index: "gsi9", Partition: "x"}); err == nil {
			t.Error("Expected error")
		}
	})
}
