package market

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// registerInterest enqueues an entity reference for the deletion-interest
// subscription. Rebuilding the wire subscription is debounced with a fixed,
// non-extending window so a burst of admissions (e.g. initial backfill)
// produces a single rebuild instead of one per entity.
func (e *Engine) registerInterest(ctx context.Context, ref string) {
	e.interestMu.Lock()
	defer e.interestMu.Unlock()

	e.refs = append(e.refs, ref)
	if e.waiting {
		return
	}
	e.waiting = true
	e.timer = time.AfterFunc(e.debounce, func() { e.rebuildDeletionSub(ctx) })
}

// rebuildDeletionSub re-issues the narrowed kind-5 subscription covering
// every reference accumulated so far.
func (e *Engine) rebuildDeletionSub(ctx context.Context) {
	e.interestMu.Lock()
	e.waiting = false
	e.timer = nil
	refs := append([]string(nil), e.refs...)
	e.interestMu.Unlock()

	e.mu.Lock()
	authors := e.trackedLocked()
	old := e.delSub
	e.mu.Unlock()

	filters := nostr.Filters{{
		Kinds:   []int{KindDeletion},
		Authors: authors,
		Tags:    nostr.TagMap{"a": refs},
	}}

	sub, err := e.feed.Subscribe(ctx, filters)
	if err != nil {
		e.log.Error(ctx, "rebuilding deletion subscription", "error", err)
		return
	}

	e.mu.Lock()
	e.delSub = sub
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}

	e.log.Info(ctx, "deletion subscription rebuilt", "refs", len(refs))
	go e.pump(ctx, sub)
}
