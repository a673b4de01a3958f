package market

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// applyItem handles an item event. An item whose section is not yet known is
// parked in the orphan buffer instead of being discarded.
func (e *Engine) applyItem(ctx context.Context, ev *nostr.Event) {
	p, err := decodeItem(ev)
	if err != nil || p.ID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}

	sec := v.Section(p.StallID)
	if sec == nil {
		e.bufferOrphanLocked(p.StallID, newItem(ev, p))
		return
	}

	existing := sec.Item(p.ID)
	switch {
	case existing != nil:
		if ev.CreatedAt <= existing.UpdatedAt {
			return
		}
		it := newItem(ev, p)
		for n, cur := range sec.Items {
			if cur.ID == p.ID {
				sec.Items[n] = it
				break
			}
		}

	case !e.wasDeletedLocked(p.ID, ev.CreatedAt):
		it := newItem(ev, p)
		e.insertItemLocked(sec, it)
		e.registerInterest(ctx, it.Ref().String())
	}
}

// insertItemLocked places a new item at the position implied by the
// section's ordering overlay, or appends when the overlay does not name it.
func (e *Engine) insertItemLocked(sec *Section, it *Item) {
	if sec.Ordering != nil {
		if idx := sec.Ordering.index(it.ID); idx >= 0 {
			if idx > len(sec.Items) {
				idx = len(sec.Items)
			}
			sec.Items = append(sec.Items[:idx], append([]*Item{it}, sec.Items[idx:]...)...)
			return
		}
	}
	sec.Items = append(sec.Items, it)
}
