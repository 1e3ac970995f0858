// Package signinnonces stores the per-account sign-in nonce. A nonce is
// handed out once and replaced in the same transaction.
package signinnonces

import "context"

type Repository interface {
	Create(ctx context.Context, email string, nonce int32) error
	// Get reads the nonce without rotating it.
	Get(ctx context.Context, email string) (int32, error)
	// GetForUpdate reads the nonce and locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, email string) (int32, error)
	Set(ctx context.Context, email string, nonce int32) error
}
