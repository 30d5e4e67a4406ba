package dynamock

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nisimpson/codebytes"
)

// DefaultAppURL is the share link base of tables built by NewTable.
const DefaultAppURL = "https://codebytes.test"

// Epoch is the fixed time reported by the clock of tables built by NewTable.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) codebytes.Clock {
	return func() time.Time { return at }
}

// SequentialTokens returns a token generator yielding prefix-1, prefix-2, ...
func SequentialTokens(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// NewTable creates a codebytes table over store with a fixed clock,
// predictable tokens and DefaultAppURL. Options run after the defaults.
func NewTable(store codebytes.Store, opts ...func(*codebytes.Table)) *codebytes.Table {
	defaults := func(t *codebytes.Table) {
		t.Tick = FixedClock(Epoch)
		t.Token = SequentialTokens("token")
		t.AppURL = DefaultAppURL
		if p, ok := t.Paginator.(*codebytes.TablePaginator); ok {
			p.Tick = t.Tick
		}
	}
	return codebytes.NewTable(store, append([]func(*codebytes.Table){defaults}, opts...)...)
}

// SnippetOption is a functional option for building snippet inputs.
type SnippetOption func(*codebytes.SnippetInput)

// NewSnippetInput creates a snippet input named "demo" on the "python38"
// runtime with the given options applied.
func NewSnippetInput(opts ...SnippetOption) codebytes.SnippetInput {
	in := codebytes.SnippetInput{
		Name:    "demo",
		Runtime: "python38",
		Code:    "print('hello')",
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// WithName sets the snippet name.
func WithName(name string) SnippetOption {
	return func(in *codebytes.SnippetInput) { in.Name = name }
}

// WithRuntime sets the runtime the snippet runs on.
func WithRuntime(runtime string) SnippetOption {
	return func(in *codebytes.SnippetInput) { in.Runtime = runtime }
}

// WithCode sets the snippet code.
func WithCode(code string) SnippetOption {
	return func(in *codebytes.SnippetInput) { in.Code = code }
}

// WithDescription sets the snippet description.
func WithDescription(description string) SnippetOption {
	return func(in *codebytes.SnippetInput) { in.Description = description }
}

// Public marks the snippet public.
func Public() SnippetOption {
	return func(in *codebytes.SnippetInput) { in.Public = true }
}

// WithGrant appends a grant of perms to user.
func WithGrant(user string, perms ...codebytes.Permission) SnippetOption {
	return func(in *codebytes.SnippetInput) {
		g := codebytes.Grant{User: user}
		for _, p := range perms {
			switch p {
			case codebytes.PermissionRead:
				g.Read = true
			case codebytes.PermissionWrite:
				g.Write = true
			case codebytes.PermissionExecute:
				g.Execute = true
			}
		}
		in.Permissions = append(in.Permissions, g)
	}
}

// RuntimeOption is a functional option for building runtime inputs.
type RuntimeOption func(*codebytes.RuntimeInput)

// NewRuntimeInput creates an input for the "python38" runtime with the given
// options applied.
func NewRuntimeInput(opts ...RuntimeOption) codebytes.RuntimeInput {
	in := codebytes.RuntimeInput{
		Name: "python38",
		ARN:  "arn:aws:lambda:us-east-1:000000000000:function:python38",
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// WithRuntimeName sets the runtime name.
func WithRuntimeName(name string) RuntimeOption {
	return func(in *codebytes.RuntimeInput) { in.Name = name }
}

// WithARN sets the execution target of the runtime.
func WithARN(arn string) RuntimeOption {
	return func(in *codebytes.RuntimeInput) { in.ARN = arn }
}

// WithRequirements sets the runtime requirements.
func WithRequirements(reqs ...string) RuntimeOption {
	return func(in *codebytes.RuntimeInput) { in.Requirements = reqs }
}

// System flags the runtime as a protected builtin.
func System() RuntimeOption {
	return func(in *codebytes.RuntimeInput) { in.System = true }
}

// InPartition stores the runtime under user instead of the acting user.
func InPartition(user string) RuntimeOption {
	return func(in *codebytes.RuntimeInput) { in.User = user }
}
