// Package resolver dispatches GraphQL resolver events to the codebytes
// entities. Every event is handled under the identity of its own caller.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/nisimpson/codebytes"
)

// HandlerFunc resolves one field from its raw arguments.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Resolver routes events by field to a HandlerFunc.
type Resolver struct {
	Table  *codebytes.Table
	Logger *slog.Logger
	routes map[string]HandlerFunc
}

// New creates a Resolver with every codebytes field registered.
func New(table *codebytes.Table, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Resolver{Table: table, Logger: logger, routes: make(map[string]HandlerFunc)}

	r.Route("Snippet.Create", r.createSnippet)
	r.Route("Snippet.Get", r.getSnippet)
	r.Route("Snippet.GetByLink", r.getSnippetByLink)
	r.Route("Snippet.Update", r.updateSnippet)
	r.Route("Snippet.Delete", r.deleteSnippet)
	r.Route("Snippet.Execute", r.executeSnippet)
	r.Route("Snippet.List", r.listSnippets)

	r.Route("SharedSnippet.Get", r.getSharedSnippet)
	r.Route("SharedSnippet.Execute", r.executeSharedSnippet)
	r.Route("SharedSnippet.Update", r.updateSharedSnippet)
	r.Route("SharedSnippet.List", r.listSharedSnippets)

	r.Route("Runtime.Get", r.getRuntime)
	r.Route("Runtime.List", r.listRuntimes)
	return r
}

// Route registers h for field, replacing any previous handler.
func (r *Resolver) Route(field string, h HandlerFunc) {
	r.routes[field] = h
}

// Fields returns the registered fields in sorted order.
func (r *Resolver) Fields() []string {
	return slices.Sorted(maps.Keys(r.routes))
}

// Handle resolves ev. Failures are reported in the response; the returned
// error is always nil so the API can render the field error.
func (r *Resolver) Handle(ctx context.Context, ev Event) (*Response, error) {
	id := codebytes.User(ev.Email())
	ctx = codebytes.WithIdentity(ctx, id)
	actor := r.Table.Actor(ctx)

	logger := r.Logger.With(
		slog.String("field", ev.Field()),
		slog.String("actor", actor),
	)
	logger.DebugContext(ctx, "resolving field")

	data, err := r.dispatch(ctx, ev)
	if err != nil {
		out, known := toError(err)
		if known {
			logger.InfoContext(ctx, "field failed", slog.String("errorType", out.Type), slog.Any("error", err))
		} else {
			logger.ErrorContext(ctx, "field failed", slog.Any("error", err))
		}
		return &Response{Error: out}, nil
	}
	return &Response{Data: data}, nil
}

func (r *Resolver) dispatch(ctx context.Context, ev Event) (any, error) {
	h, ok := r.routes[ev.Field()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownField, ev.Field())
	}

	args := ev.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	return h(ctx, args)
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(args, &v); err != nil {
		return v, badRequest("invalid arguments: %v", err)
	}
	return v, nil
}
