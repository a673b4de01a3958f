package market

import (
	"github.com/nbd-wtf/go-nostr"
)

// applyProfile overwrites a vendor's display attributes from a kind-0 event.
// Profile events never create vendors; the vendor must already be tracked.
func (e *Engine) applyProfile(ev *nostr.Event) {
	p, err := decodeProfile(ev)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}
	if ev.CreatedAt <= v.UpdatedAt {
		return
	}

	v.Name = p.Name
	v.About = p.About
	v.Picture = p.Picture
	v.UpdatedAt = ev.CreatedAt
}
