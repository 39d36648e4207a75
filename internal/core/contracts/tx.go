package contracts

import "context"

// TxManager runs fn inside one storage transaction. Repository calls made
// with the context it passes to fn share that transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
