package market

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// Vendor is a tracked identity owning catalog sections. A vendor exists only
// while its key is on the tracked set; events never create vendors.
type Vendor struct {
	PubKey    string
	SecretKey string // hex, empty unless the local actor controls the vendor
	Name      string
	About     string
	Picture   string
	Sections  []*Section
	Ordering  *Ordering
	UpdatedAt nostr.Timestamp

	npub string
}

// Npub returns the bech32 form of the vendor public key.
func (v *Vendor) Npub() string {
	if v.npub == "" {
		v.npub, _ = nip19.EncodePublicKey(v.PubKey)
	}
	return v.npub
}

// Section looks up a live section by its logical identifier.
func (v *Vendor) Section(id string) *Section {
	for _, s := range v.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Section is a named grouping of items under a vendor (a stall). The same
// logical section may arrive as a public event or an encrypted draft; both
// converge onto one record, with Draft reflecting which form won.
type Section struct {
	PubKey      string
	ID          string
	Name        string
	Description string
	Currency    string
	Draft       bool
	Items       []*Item
	Ordering    *Ordering
	UpdatedAt   nostr.Timestamp
}

// Ref returns the address reference of the section ("30017:pubkey:id").
func (s *Section) Ref() Ref {
	return Ref{Kind: KindSection, PubKey: s.PubKey, ID: s.ID}
}

// Item looks up a live item by its logical identifier.
func (s *Section) Item(id string) *Item {
	for _, it := range s.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Item is a single listed entry under a section.
type Item struct {
	PubKey      string
	ID          string
	SectionID   string
	Name        string
	Description string
	Images      []string
	Price       float64
	Currency    string
	UpdatedAt   nostr.Timestamp
}

// Ref returns the address reference of the item ("30018:pubkey:id").
func (i *Item) Ref() Ref {
	return Ref{Kind: KindItem, PubKey: i.PubKey, ID: i.ID}
}

// Ordering is an explicit display order asserted over a vendor's sections or
// a section's items. Applying it is a pure reordering: entries without a live
// match are skipped and unnamed children keep their prior relative order.
type Ordering struct {
	IDs       []string
	UpdatedAt nostr.Timestamp
}

func (o *Ordering) index(id string) int {
	for n, v := range o.IDs {
		if v == id {
			return n
		}
	}
	return -1
}

func (o *Ordering) clone() *Ordering {
	if o == nil {
		return nil
	}
	return &Ordering{IDs: append([]string(nil), o.IDs...), UpdatedAt: o.UpdatedAt}
}

// Snapshot is a consistent, fully detached copy of the read model. It can be
// handed to presentation or persistence layers without further locking.
type Snapshot struct {
	Vendors []*Vendor
}

func (v *Vendor) clone() *Vendor {
	c := &Vendor{
		PubKey:    v.PubKey,
		SecretKey: v.SecretKey,
		Name:      v.Name,
		About:     v.About,
		Picture:   v.Picture,
		Ordering:  v.Ordering.clone(),
		UpdatedAt: v.UpdatedAt,
	}
	c.Sections = make([]*Section, 0, len(v.Sections))
	for _, s := range v.Sections {
		c.Sections = append(c.Sections, s.clone())
	}
	return c
}

func (s *Section) clone() *Section {
	c := &Section{
		PubKey:      s.PubKey,
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Currency:    s.Currency,
		Draft:       s.Draft,
		Ordering:    s.Ordering.clone(),
		UpdatedAt:   s.UpdatedAt,
	}
	c.Items = make([]*Item, 0, len(s.Items))
	for _, it := range s.Items {
		c.Items = append(c.Items, it.clone())
	}
	return c
}

func (i *Item) clone() *Item {
	c := *i
	c.Images = append([]string(nil), i.Images...)
	return &c
}
