package market

import (
	"github.com/nbd-wtf/go-nostr"
)

// applyOrdering stores an ordering overlay and recomputes the live child
// order of its target. Overlays with duplicate identifiers are rejected
// outright, leaving the previous order untouched.
func (e *Engine) applyOrdering(ev *nostr.Event) {
	d := ev.Tags.GetD()
	if d == OrderingSectionsTag {
		e.applyVendorOrdering(ev)
		return
	}
	if ref, err := ParseRef(d); err == nil && ref.Kind == KindSection {
		e.applySectionOrdering(ev, ref.ID)
	}
}

func (e *Engine) applyVendorOrdering(ev *nostr.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}
	if v.Ordering != nil && v.Ordering.UpdatedAt > ev.CreatedAt {
		return
	}

	o := newOrdering(ev)
	if o.hasDuplicates() {
		return
	}

	v.Ordering = o
	v.Sections = reorder(v.Sections, o, func(s *Section) string { return s.ID })
}

func (e *Engine) applySectionOrdering(ev *nostr.Event, sectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}
	s := v.Section(sectionID)
	if s == nil {
		return
	}
	if s.Ordering != nil && s.Ordering.UpdatedAt > ev.CreatedAt {
		return
	}

	o := newOrdering(ev)
	if o.hasDuplicates() {
		return
	}

	s.Ordering = o
	s.Items = reorder(s.Items, o, func(it *Item) string { return it.ID })
}

// reorder emits children named by the overlay in overlay order, skipping
// overlay entries with no live match, then the unnamed children in their
// prior relative order. It creates and destroys nothing.
func reorder[T any](list []T, o *Ordering, id func(T) string) []T {
	named := make(map[string]struct{}, len(o.IDs))
	for _, v := range o.IDs {
		named[v] = struct{}{}
	}

	out := make([]T, 0, len(list))
	for _, want := range o.IDs {
		for _, child := range list {
			if id(child) == want {
				out = append(out, child)
				break
			}
		}
	}
	for _, child := range list {
		if _, ok := named[id(child)]; !ok {
			out = append(out, child)
		}
	}
	return out
}
