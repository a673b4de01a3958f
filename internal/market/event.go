package market

import (
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"
)

// Event kinds consumed and produced by the engine.
const (
	// KindProfile carries vendor display metadata.
	KindProfile = 0
	// KindDeletion references entities to delete via "a" tags.
	KindDeletion = 5
	// KindOrdering asserts display order of sections or items.
	KindOrdering = 30003
	// KindSection is the public form of a catalog section.
	KindSection = 30017
	// KindItem is a listed item belonging to a section.
	KindItem = 30018
	// KindDraft wraps an encrypted event; a "k" tag names the inner kind.
	KindDraft = 31234
)

// OrderingSectionsTag is the "d" tag of a vendor-level ordering event.
const OrderingSectionsTag = "stalls"

// profilePayload mirrors the content of a kind-0 event.
type profilePayload struct {
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture"`
}

// sectionPayload mirrors the JSON content of a section event.
type sectionPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
}

// itemPayload mirrors the JSON content of an item event.
type itemPayload struct {
	ID          string   `json:"id"`
	StallID     string   `json:"stall_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
}

// auxKind returns the value of the "k" tag, which disambiguates draft events.
func auxKind(ev *nostr.Event) string {
	if tag := ev.Tags.GetFirst([]string{"k"}); tag != nil {
		return tag.Value()
	}
	return ""
}

func decodeSection(ev *nostr.Event) (sectionPayload, error) {
	var p sectionPayload
	err := json.Unmarshal([]byte(ev.Content), &p)
	return p, err
}

func decodeItem(ev *nostr.Event) (itemPayload, error) {
	var p itemPayload
	err := json.Unmarshal([]byte(ev.Content), &p)
	return p, err
}

func decodeProfile(ev *nostr.Event) (profilePayload, error) {
	var p profilePayload
	err := json.Unmarshal([]byte(ev.Content), &p)
	return p, err
}

// newSection materializes a section record from a decoded event payload.
// The item list is taken over as-is (typically drained orphans).
func newSection(ev *nostr.Event, p sectionPayload, items []*Item, draft bool) *Section {
	if items == nil {
		items = []*Item{}
	}
	return &Section{
		PubKey:      ev.PubKey,
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Currency:    p.Currency,
		Draft:       draft,
		Items:       items,
		UpdatedAt:   ev.CreatedAt,
	}
}

func newItem(ev *nostr.Event, p itemPayload) *Item {
	return &Item{
		PubKey:      ev.PubKey,
		ID:          p.ID,
		SectionID:   p.StallID,
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Price:       p.Price,
		Currency:    p.Currency,
		UpdatedAt:   ev.CreatedAt,
	}
}

// newOrdering extracts the identifier sequence from the "a" tags of an
// ordering event, keeping sequence order.
func newOrdering(ev *nostr.Event) *Ordering {
	o := &Ordering{UpdatedAt: ev.CreatedAt}
	for _, tag := range ev.Tags.GetAll([]string{"a"}) {
		ref, err := ParseRef(tag.Value())
		if err != nil {
			continue
		}
		o.IDs = append(o.IDs, ref.ID)
	}
	return o
}

// hasDuplicates reports whether the sequence names any identifier twice.
func (o *Ordering) hasDuplicates() bool {
	seen := make(map[string]struct{}, len(o.IDs))
	for _, id := range o.IDs {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
