package codebytes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RuntimeInput describes a runtime to register.
type RuntimeInput struct {
	Name         string   `json:"name" yaml:"name"`
	User         string   `json:"user,omitempty" yaml:"user,omitempty"` // Partition; defaults to the acting user
	Requirements []string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	ARN          string   `json:"arn" yaml:"arn"`
	System       bool     `json:"system,omitempty" yaml:"system,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Runtime is an execution target snippets run against.
type Runtime struct {
	doc   *Document
	table *Table
}

// NewRuntime builds an unsaved runtime.
func (t *Table) NewRuntime(ctx context.Context, in RuntimeInput) (*Runtime, error) {
	attrs := Item{
		AttributeNameName: in.Name,
		"arn":             in.ARN,
		"requirements":    in.Requirements,
	}
	if in.Requirements == nil {
		attrs["requirements"] = []string{}
	}
	if in.User != "" {
		attrs[AttributeNameUser] = in.User
	}
	if in.System {
		attrs[AttributeNameSystem] = true
	}
	if in.Description != "" {
		attrs["description"] = in.Description
	}

	doc, err := t.NewDocument(ctx, RuntimeSchema, attrs)
	if err != nil {
		return nil, err
	}
	return &Runtime{doc: doc, table: t}, nil
}

// GetRuntime fetches a runtime from user's partition. A missing runtime
// returns nil without error.
func (t *Table) GetRuntime(ctx context.Context, name, user string, opts ...func(*GetOptions)) (*Runtime, error) {
	doc, err := t.Get(ctx, RuntimeSchema, name, user, opts...)
	if err != nil || doc == nil {
		return nil, err
	}
	return &Runtime{doc: doc, table: t}, nil
}

// ListRuntimes lists the runtimes in user's partition.
func (t *Table) ListRuntimes(ctx context.Context, user, cursor string) (*ListResult, error) {
	return t.List(ctx, ListQuery{Partition: user, Type: RuntimeSchema, Cursor: cursor})
}

func (r *Runtime) Doc() *Document { return r.doc }

func (r *Runtime) Name() string        { return r.doc.Name() }
func (r *Runtime) ARN() string         { return r.doc.String("arn") }
func (r *Runtime) System() bool        { return r.doc.Bool(AttributeNameSystem) }
func (r *Runtime) Description() string { return r.doc.String("description") }

// Requirements returns the dependency identifiers of the runtime.
func (r *Runtime) Requirements() []string {
	var reqs []string
	_ = r.doc.Decode("requirements", &reqs)
	return reqs
}

// Create stores the runtime.
func (r *Runtime) Create(ctx context.Context, opts ...func(*CreateOptions)) error {
	return r.table.Create(ctx, r, opts...)
}

// Update applies changes to the runtime. Only the description is mutable.
func (r *Runtime) Update(ctx context.Context, changes Item) error {
	return r.table.Update(ctx, r, changes)
}

type executeRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout"`
}

// Execute sends code to the runtime's execution target and returns the
// decoded response. A zero timeout uses the table default. Timeouts are sent
// in whole seconds, rounded up.
func (r *Runtime) Execute(ctx context.Context, code string, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		timeout = r.table.DefaultTimeout
	}
	if r.table.Executor == nil {
		return nil, &RemoteExecutionError{Target: r.ARN(), Err: fmt.Errorf("no executor configured")}
	}

	payload, err := json.Marshal(executeRequest{
		Code:    code,
		Timeout: int((timeout + time.Second - 1) / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	r.table.Logger.DebugContext(ctx, "invoking runtime",
		slog.String("runtime", r.Name()),
		slog.String("target", r.ARN()),
	)

	res, err := r.table.Executor.Invoke(ctx, r.ARN(), payload)
	if err != nil {
		if errors.Is(err, ErrRemoteExecution) {
			return nil, err
		}
		return nil, &RemoteExecutionError{Target: r.ARN(), Err: err}
	}

	var result any
	if err := json.Unmarshal(res, &result); err != nil {
		return nil, &RemoteExecutionError{
			Target:  r.ARN(),
			Payload: res,
			Err:     fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return result, nil
}
