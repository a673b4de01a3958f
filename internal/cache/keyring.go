package cache

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openstall/marketfeed/internal/common"
	"github.com/openstall/marketfeed/internal/cryptox"
	"github.com/openstall/marketfeed/internal/dbx"
)

const saltLen = 16

// SQLiteKeyringRepository implements KeyringRepository on the cache DB.
// Unlock must succeed before any other method is called.
type SQLiteKeyringRepository struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteKeyringRepository returns a locked repository bound to db.
func NewSQLiteKeyringRepository(db *sql.DB) *SQLiteKeyringRepository {
	return &SQLiteKeyringRepository{db: db}
}

// Unlock derives the keyring key from passphrase and checks it against the
// stored verifier. On first use it generates a salt and stores the verifier
// instead. A wrong passphrase returns common.ErrInvalidPassphrase.
func (r *SQLiteKeyringRepository) Unlock(ctx context.Context, passphrase []byte) error {
	var salt, verifier []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT salt, verifier FROM keyring_meta WHERE id = 1").Scan(&salt, &verifier)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		salt, err = cryptox.GenerateSalt(saltLen)
		if err != nil {
			return fmt.Errorf("generating keyring salt: %w", err)
		}
		key := cryptox.DeriveKey(passphrase, salt)
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO keyring_meta (id, salt, verifier) VALUES (1, ?, ?)",
			salt, cryptox.MakeVerifier(key))
		if err != nil {
			return fmt.Errorf("initializing keyring: %w", err)
		}
		r.key = key
		return nil

	case err != nil:
		return fmt.Errorf("reading keyring meta: %w", err)
	}

	key := cryptox.DeriveKey(passphrase, salt)
	if subtle.ConstantTimeCompare(cryptox.MakeVerifier(key), verifier) != 1 {
		return common.ErrInvalidPassphrase
	}
	r.key = key
	return nil
}

// Put seals secretKey under the keyring key and upserts it for pubKey.
func (r *SQLiteKeyringRepository) Put(ctx context.Context, pubKey, secretKey string) error {
	if r.key == nil {
		return common.ErrInvalidPassphrase
	}
	ciphertext, nonce, err := cryptox.Seal(secretKey, r.key)
	if err != nil {
		return fmt.Errorf("sealing secret key: %w", err)
	}
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO keyring (pubkey, ciphertext, nonce) VALUES (?, ?, ?)
			 ON CONFLICT(pubkey) DO UPDATE SET ciphertext = excluded.ciphertext, nonce = excluded.nonce`,
			pubKey, ciphertext, nonce)
		return err
	})
	if err != nil {
		return fmt.Errorf("storing secret key: %w", err)
	}
	return nil
}

// Get opens the secret key stored for pubKey.
func (r *SQLiteKeyringRepository) Get(ctx context.Context, pubKey string) (string, error) {
	if r.key == nil {
		return "", common.ErrInvalidPassphrase
	}
	var ciphertext, nonce []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT ciphertext, nonce FROM keyring WHERE pubkey = ?", pubKey).
		Scan(&ciphertext, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading secret key: %w", err)
	}

	var secretKey string
	if err := cryptox.Open(ciphertext, nonce, r.key, &secretKey); err != nil {
		return "", fmt.Errorf("opening secret key: %w", err)
	}
	return secretKey, nil
}

// All opens every stored key, keyed by vendor pubkey.
func (r *SQLiteKeyringRepository) All(ctx context.Context) (map[string]string, error) {
	if r.key == nil {
		return nil, common.ErrInvalidPassphrase
	}
	rows, err := r.db.QueryContext(ctx, "SELECT pubkey, ciphertext, nonce FROM keyring")
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var pubKey string
		var ciphertext, nonce []byte
		if err := rows.Scan(&pubKey, &ciphertext, &nonce); err != nil {
			return nil, err
		}
		var secretKey string
		if err := cryptox.Open(ciphertext, nonce, r.key, &secretKey); err != nil {
			return nil, fmt.Errorf("opening secret key for %s: %w", pubKey, err)
		}
		keys[pubKey] = secretKey
	}
	return keys, rows.Err()
}

// Delete removes the key stored for pubKey. Deleting an absent key is not
// an error.
func (r *SQLiteKeyringRepository) Delete(ctx context.Context, pubKey string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM keyring WHERE pubkey = ?", pubKey); err != nil {
		return fmt.Errorf("deleting secret key: %w", err)
	}
	return nil
}
