package market

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/openstall/marketfeed/internal/logging"
)

// DefaultDebounce is the delay used to coalesce deletion-interest updates
// before the deletion subscription is rebuilt.
const DefaultDebounce = 200 * time.Millisecond

// Engine reconciles incoming events into the vendor/section/item read model.
// All mutations are serialized through one mutex; handlers never hold the
// lock across I/O except that draft decryption runs on its own goroutine and
// re-enters the engine when it resolves.
type Engine struct {
	log       logging.Logger
	feed      Feed
	decrypter Decrypter
	debounce  time.Duration

	mu         sync.Mutex
	vendors    []*Vendor
	tombstones map[string]nostr.Timestamp
	orphans    map[string][]*Item
	sub        Subscription
	delSub     Subscription

	interestMu sync.Mutex
	refs       []string
	waiting    bool
	timer      *time.Timer

	drafts sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the default slog-backed logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDecrypter replaces the local NIP-44 decrypter, e.g. with a
// remote-signer gated implementation.
func WithDecrypter(d Decrypter) Option {
	return func(e *Engine) { e.decrypter = d }
}

// WithDebounce overrides the deletion-interest debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// NewEngine returns an engine consuming from the given feed.
func NewEngine(feed Feed, opts ...Option) *Engine {
	e := &Engine{
		log:        logging.NewSlogLogger(slog.Default()),
		feed:       feed,
		decrypter:  NIP44Decrypter{},
		debounce:   DefaultDebounce,
		tombstones: make(map[string]nostr.Timestamp),
		orphans:    make(map[string][]*Item),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply routes one event to its handler. Unrecognized kind/tag combinations
// and undecodable payloads are no-ops; a bad event never affects the next.
func (e *Engine) Apply(ctx context.Context, ev *nostr.Event) {
	if ev == nil {
		return
	}
	switch {
	case ev.Kind == KindProfile:
		e.applyProfile(ev)
	case ev.Kind == KindDraft && auxKind(ev) == strconv.Itoa(KindSection):
		e.applyDraft(ctx, ev)
	case ev.Kind == KindSection:
		e.applySection(ctx, ev)
	case ev.Kind == KindItem:
		e.applyItem(ctx, ev)
	case ev.Kind == KindOrdering:
		e.applyOrdering(ev)
	case ev.Kind == KindDeletion:
		e.applyDeletion(ev)
	}
}

// TrackKeys replaces the tracked vendor set with vendors controlled by the
// given secret keys (hex). Vendors no longer listed are dropped; existing
// ones keep their state. The main subscription is rebuilt.
func (e *Engine) TrackKeys(ctx context.Context, secretKeys []string) error {
	pairs := make([]keyPair, 0, len(secretKeys))
	for _, sk := range secretKeys {
		pub, err := nostr.GetPublicKey(sk)
		if err != nil {
			return fmt.Errorf("deriving public key: %w", err)
		}
		pairs = append(pairs, keyPair{pub: pub, sk: sk})
	}
	return e.retrack(ctx, pairs)
}

// TrackPubkeys replaces the tracked vendor set with read-only vendors.
func (e *Engine) TrackPubkeys(ctx context.Context, pubkeys []string) error {
	pairs := make([]keyPair, 0, len(pubkeys))
	for _, pub := range pubkeys {
		pairs = append(pairs, keyPair{pub: pub})
	}
	return e.retrack(ctx, pairs)
}

type keyPair struct {
	pub string
	sk  string
}

func (e *Engine) retrack(ctx context.Context, pairs []keyPair) error {
	e.mu.Lock()
	kept := make([]*Vendor, 0, len(pairs))
	for _, p := range pairs {
		found := false
		for _, v := range e.vendors {
			if v.PubKey == p.pub {
				if p.sk != "" {
					v.SecretKey = p.sk
				}
				kept = append(kept, v)
				found = true
				break
			}
		}
		if !found {
			kept = append(kept, &Vendor{PubKey: p.pub, SecretKey: p.sk, Sections: []*Section{}})
		}
	}
	e.vendors = kept
	authors := e.trackedLocked()
	old := e.sub
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}

	sub, err := e.feed.Subscribe(ctx, mainFilters(authors))
	if err != nil {
		return fmt.Errorf("subscribing to tracked authors: %w", err)
	}

	e.mu.Lock()
	e.sub = sub
	e.mu.Unlock()

	e.log.Info(ctx, "tracking vendors", "count", len(authors))
	go e.pump(ctx, sub)
	return nil
}

func mainFilters(authors []string) nostr.Filters {
	return nostr.Filters{
		{Authors: authors, Kinds: []int{KindProfile, KindSection, KindItem, KindOrdering}},
		{Authors: authors, Kinds: []int{KindDraft}, Tags: nostr.TagMap{"k": []string{strconv.Itoa(KindSection)}}},
	}
}

// pump feeds subscription events into Apply until the subscription closes.
func (e *Engine) pump(ctx context.Context, sub Subscription) {
	for ev := range sub.Events() {
		e.Apply(ctx, ev)
	}
}

// Clear drops all state: vendors, tombstones, orphans, pending interest and
// both subscriptions. The debounce timer is stopped, not extended.
func (e *Engine) Clear() {
	e.interestMu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.waiting = false
	e.refs = nil
	e.interestMu.Unlock()

	e.mu.Lock()
	sub, delSub := e.sub, e.delSub
	e.sub, e.delSub = nil, nil
	e.vendors = nil
	e.tombstones = make(map[string]nostr.Timestamp)
	e.orphans = make(map[string][]*Item)
	e.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if delSub != nil {
		delSub.Close()
	}
}

// Wait blocks until every in-flight draft decryption has been applied or
// discarded. Intended for teardown and tests.
func (e *Engine) Wait() {
	e.drafts.Wait()
}

// Snapshot returns a deep copy of the current read model. Readers never see
// a partial in-progress mutation.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{Vendors: make([]*Vendor, 0, len(e.vendors))}
	for _, v := range e.vendors {
		snap.Vendors = append(snap.Vendors, v.clone())
	}
	return snap
}

// Restore warm-starts the model from a previously persisted snapshot and
// re-registers deletion interest for every restored entity. The caller still
// owns the tracked set and should call TrackKeys/TrackPubkeys afterwards.
func (e *Engine) Restore(ctx context.Context, snap Snapshot) {
	e.mu.Lock()
	e.vendors = make([]*Vendor, 0, len(snap.Vendors))
	for _, v := range snap.Vendors {
		e.vendors = append(e.vendors, v.clone())
	}
	vendors := e.vendors
	e.mu.Unlock()

	for _, v := range vendors {
		for _, s := range v.Sections {
			e.registerInterest(ctx, s.Ref().String())
			for _, it := range s.Items {
				e.registerInterest(ctx, it.Ref().String())
			}
		}
	}
}

// vendorLocked returns the tracked vendor for a pubkey. Callers hold e.mu.
func (e *Engine) vendorLocked(pubkey string) *Vendor {
	for _, v := range e.vendors {
		if v.PubKey == pubkey {
			return v
		}
	}
	return nil
}

// trackedLocked returns the tracked pubkeys. Callers hold e.mu.
func (e *Engine) trackedLocked() []string {
	authors := make([]string, 0, len(e.vendors))
	for _, v := range e.vendors {
		authors = append(authors, v.PubKey)
	}
	return authors
}

// wasDeletedLocked reports whether a tombstone suppresses a create at ts.
func (e *Engine) wasDeletedLocked(id string, ts nostr.Timestamp) bool {
	tomb, ok := e.tombstones[id]
	return ok && tomb >= ts
}
