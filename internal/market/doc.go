// Package market maintains a queryable read model of vendors, their catalog
// sections and listed items, reconciled from Nostr events that may arrive
// out of order, duplicated, or with missing parents.
//
// The engine applies a last-writer-wins-by-timestamp policy per logical
// identifier. Deletions are remembered in a tombstone ledger so that stale
// creates can never resurrect an entity, and items that arrive before their
// section are parked in an orphan buffer until the section shows up.
package market
