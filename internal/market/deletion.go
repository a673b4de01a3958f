package market

import (
	"github.com/nbd-wtf/go-nostr"
)

// applyDeletion records tombstones for every referenced identifier and
// evicts live entities whose own timestamp does not beat the deletion.
//
// The comparisons are deliberately asymmetric: an entity with timestamp
// equal to the deletion is evicted, and a later create with timestamp equal
// to the tombstone is suppressed.
func (e *Engine) applyDeletion(ev *nostr.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}

	for _, tag := range ev.Tags.GetAll([]string{"a"}) {
		ref, err := ParseRef(tag.Value())
		if err != nil {
			continue
		}
		if tomb, ok := e.tombstones[ref.ID]; ok && tomb >= ev.CreatedAt {
			continue
		}
		e.tombstones[ref.ID] = ev.CreatedAt

		switch {
		case ref.IsSection():
			e.deleteSectionLocked(v, ref.ID, ev.CreatedAt)
		case ref.IsItem():
			e.deleteItemLocked(v, ref.ID, ev.CreatedAt)
		}
	}
}

func (e *Engine) deleteSectionLocked(v *Vendor, id string, ts nostr.Timestamp) {
	s := v.Section(id)
	if s == nil || s.UpdatedAt > ts {
		return
	}

	e.stashOrphansLocked(id, s.Items)
	kept := v.Sections[:0]
	for _, cur := range v.Sections {
		if cur.ID != id {
			kept = append(kept, cur)
		}
	}
	v.Sections = kept
}

func (e *Engine) deleteItemLocked(v *Vendor, id string, ts nostr.Timestamp) {
	for _, s := range v.Sections {
		kept := s.Items[:0]
		for _, it := range s.Items {
			if it.ID != id || it.UpdatedAt > ts {
				kept = append(kept, it)
			}
		}
		s.Items = kept
	}
}
