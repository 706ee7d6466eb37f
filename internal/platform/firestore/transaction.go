package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	txMaxAttempts = 5
	txDeadline    = 15 * time.Second
)

// TxFunc is the body of a read-modify-write transaction. Firestore replays it on contention,
// so it must not have side effects outside tx.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// RunTransaction runs fn on client with a bounded deadline and retry budget. Extra options are
// appended after the defaults, so firestore.MaxAttempts passed by the caller wins. An error
// returned by fn comes back unwrapped; only infrastructure failures are mapped through WrapError.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...firestore.TransactionOption) error {
	if client == nil {
		return errors.New("firestore: client is nil")
	}
	ctx, cancel := boundDeadline(ctx, txDeadline)
	defer cancel()

	var bodyErr error
	txOpts := append([]firestore.TransactionOption{firestore.MaxAttempts(txMaxAttempts)}, opts...)
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		bodyErr = fn(ctx, tx)
		return bodyErr
	}, txOpts...)
	switch {
	case err == nil:
		return nil
	case bodyErr != nil && errors.Is(err, bodyErr):
		return bodyErr
	default:
		return WrapError("transaction", err)
	}
}

// boundDeadline shortens ctx to limit unless the caller already set an earlier deadline.
func boundDeadline(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= limit {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, limit)
}
