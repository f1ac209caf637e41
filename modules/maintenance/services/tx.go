package services

import (
	"context"

	"github.com/helmline/pms/pkg/composables"
)

// TxRunner runs fn inside a transaction boundary. The default wires through
// composables.InTx against the request's pgx pool; tests swap in
// PassthroughTx so in-memory repositories work without a database.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// DefaultTx opens a real database transaction from the pool on the context.
func DefaultTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTx(ctx, fn)
}

// PassthroughTx runs fn directly on the given context.
func PassthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
