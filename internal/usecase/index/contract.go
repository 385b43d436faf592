package index

import "context"

// Engine is the write side of the search engine.
type Engine interface {
	Index(ctx context.Context, alias, id string, doc map[string]any) error
	SetFields(ctx context.Context, alias, id string, fields map[string]any) error
	EnsureAliases(ctx context.Context, physical string, aliases ...string) error
}
