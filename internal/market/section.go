package market

import (
	"context"
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"
)

// applySection handles the public form of a section event.
func (e *Engine) applySection(ctx context.Context, ev *nostr.Event) {
	p, err := decodeSection(ev)
	if err != nil || p.ID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.upsertSectionLocked(ctx, ev, p, false)
}

// applyDraft handles an encrypted section draft. Decryption may be gated on
// remote approval, so it runs on its own goroutine and the draft's effects
// are applied with the timestamp rules evaluated when it resolves, not when
// it arrived. A failed decryption drops only this draft.
func (e *Engine) applyDraft(ctx context.Context, ev *nostr.Event) {
	e.mu.Lock()
	v := e.vendorLocked(ev.PubKey)
	if v == nil || v.SecretKey == "" {
		e.mu.Unlock()
		return
	}
	sk, pub := v.SecretKey, v.PubKey
	e.mu.Unlock()

	e.drafts.Add(1)
	go func() {
		defer e.drafts.Done()

		plain, err := e.decrypter.Decrypt(ctx, ev.Content, sk, pub)
		if err != nil {
			e.log.Warn(ctx, "draft decryption failed", "pubkey", pub, "error", err)
			return
		}

		var inner nostr.Event
		if err := json.Unmarshal([]byte(plain), &inner); err != nil {
			e.log.Warn(ctx, "draft payload is not an event", "pubkey", pub, "error", err)
			return
		}
		p, err := decodeSection(&inner)
		if err != nil || p.ID == "" {
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		e.upsertSectionLocked(ctx, &inner, p, true)
	}()
}

// upsertSectionLocked applies create/update logic shared by the public and
// draft forms. Callers hold e.mu.
func (e *Engine) upsertSectionLocked(ctx context.Context, ev *nostr.Event, p sectionPayload, draft bool) {
	v := e.vendorLocked(ev.PubKey)
	if v == nil {
		return
	}

	existing := v.Section(p.ID)
	switch {
	case existing != nil:
		if ev.CreatedAt <= existing.UpdatedAt {
			return
		}
		wasDraft := existing.Draft
		s := newSection(ev, p, existing.Items, draft)
		s.Ordering = existing.Ordering
		for n, cur := range v.Sections {
			if cur.ID == p.ID {
				v.Sections[n] = s
				break
			}
		}
		// Leaving draft state makes the section publicly addressable, so
		// deletion interest has to cover its public reference too.
		if wasDraft && !draft {
			e.registerInterest(ctx, s.Ref().String())
		}

	case !e.wasDeletedLocked(p.ID, ev.CreatedAt):
		s := newSection(ev, p, e.drainOrphansLocked(p.ID), draft)
		e.insertSectionLocked(v, s)
		ref := Ref{Kind: KindSection, PubKey: s.PubKey, ID: s.ID}
		if draft {
			ref.Kind = KindDraft
		}
		e.registerInterest(ctx, ref.String())
	}
}

// insertSectionLocked places a new section at the position implied by the
// vendor's ordering overlay, or appends when the overlay does not name it.
func (e *Engine) insertSectionLocked(v *Vendor, s *Section) {
	if v.Ordering != nil {
		if idx := v.Ordering.index(s.ID); idx >= 0 {
			if idx > len(v.Sections) {
				idx = len(v.Sections)
			}
			v.Sections = append(v.Sections[:idx], append([]*Section{s}, v.Sections[idx:]...)...)
			return
		}
	}
	v.Sections = append(v.Sections, s)
}
