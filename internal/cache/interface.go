package cache

import (
	"context"

	"github.com/openstall/marketfeed/internal/market"
)

// SnapshotRepository persists and restores read-model snapshots.
type SnapshotRepository interface {
	// Save replaces the persisted tree with the given snapshot.
	Save(ctx context.Context, snap market.Snapshot) error

	// Load returns the persisted tree. An empty database yields an empty
	// snapshot, not an error.
	Load(ctx context.Context) (market.Snapshot, error)
}

// KeyringRepository stores vendor secret keys sealed under the keyring key.
type KeyringRepository interface {
	// Unlock derives the keyring key from the passphrase and verifies it.
	// First use initializes salt and verifier. A wrong passphrase returns
	// common.ErrInvalidPassphrase.
	Unlock(ctx context.Context, passphrase []byte) error

	// Put seals and stores the secret key for a vendor.
	Put(ctx context.Context, pubKey, secretKey string) error

	// Get opens the secret key for a vendor. Unknown vendors return
	// common.ErrorNotFound.
	Get(ctx context.Context, pubKey string) (string, error)

	// All opens every stored key, keyed by vendor pubkey.
	All(ctx context.Context) (map[string]string, error)

	// Delete removes a vendor's key.
	Delete(ctx context.Context, pubKey string) error
}
