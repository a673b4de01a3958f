// Package cache persists the reconciled read model and the vendor keyring
// in a local SQLite database, so the client can warm-start without waiting
// for a full backfill from the relays.
//
// Two repositories are exposed:
//
//   - SnapshotRepository stores the vendor→section→item tree, including
//     ordering overlays and relative positions, as one transactional rewrite
//     per save.
//   - KeyringRepository stores vendor secret keys sealed with AES-GCM under
//     an argon2-derived key (see cryptox); a verifier row rejects a wrong
//     passphrase before any key is touched.
package cache
