// Package commands builds, signs and publishes the marketplace events a
// vendor operator issues: profile updates, sections (public or encrypted
// drafts), items, ordering overlays and deletions. Payloads are validated
// before anything is signed; an invalid command publishes nothing.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"github.com/openstall/marketfeed/internal/market"
)

// VendorInfo is a vendor's public display metadata.
type VendorInfo struct {
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture"`
}

// SectionInfo is the payload of a section event.
type SectionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
}

// ItemInfo is the payload of an item event.
type ItemInfo struct {
	ID          string   `json:"id"`
	SectionID   string   `json:"stall_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
}

// Commands publishes signed vendor events.
type Commands struct {
	pub market.Publisher
}

// New returns a Commands publishing through pub.
func New(pub market.Publisher) *Commands {
	return &Commands{pub: pub}
}

// AddVendor generates a fresh vendor keypair and publishes its profile.
// The secret key is returned so the caller can store it in the keyring.
func (c *Commands) AddVendor(ctx context.Context, info VendorInfo) (secretKey, pubKey string, err error) {
	if err := validateVendor(info); err != nil {
		return "", "", err
	}

	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return "", "", fmt.Errorf("deriving public key: %w", err)
	}

	if err := c.publishProfile(ctx, sk, info); err != nil {
		return "", "", err
	}
	return sk, pk, nil
}

// UpdateProfile publishes new display metadata for an existing vendor.
func (c *Commands) UpdateProfile(ctx context.Context, secretKey string, info VendorInfo) error {
	if err := validateVendor(info); err != nil {
		return err
	}
	return c.publishProfile(ctx, secretKey, info)
}

// RemoveVendor blanks a vendor's profile. Dropping the key from the tracked
// set is the caller's responsibility; the blank profile just stops readers
// who still hold the old events from showing stale metadata.
func (c *Commands) RemoveVendor(ctx context.Context, secretKey string) error {
	return c.publishProfile(ctx, secretKey, VendorInfo{})
}

func (c *Commands) publishProfile(ctx context.Context, secretKey string, info VendorInfo) error {
	content, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	ev := nostr.Event{
		Kind:      market.KindProfile,
		CreatedAt: nostr.Now(),
		Content:   string(content),
		Tags:      nostr.Tags{},
	}
	return c.sign(ctx, &ev, secretKey)
}

// AddSection publishes a section, either publicly or as an encrypted draft,
// plus the updated vendor-level ordering overlay naming the section last.
// A zero ID gets a fresh UUID; the final ID is returned.
func (c *Commands) AddSection(ctx context.Context, secretKey string, info SectionInfo, draft bool, orderedIDs []string) (string, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if err := validateSection(info); err != nil {
		return "", err
	}

	pk, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return "", fmt.Errorf("deriving public key: %w", err)
	}

	content, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encoding section: %w", err)
	}

	ev := nostr.Event{
		PubKey:    pk,
		Kind:      market.KindSection,
		CreatedAt: nostr.Now(),
		Content:   string(content),
		Tags:      nostr.Tags{{"d", info.ID}},
	}

	if draft {
		ev, err = c.wrapDraft(ev, secretKey, pk)
		if err != nil {
			return "", err
		}
	}
	if err := c.sign(ctx, &ev, secretKey); err != nil {
		return "", err
	}

	ids := append(append([]string(nil), orderedIDs...), info.ID)
	if err := c.SetSectionOrder(ctx, secretKey, ids); err != nil {
		return "", err
	}
	return info.ID, nil
}

// wrapDraft encloses the raw public section event in a NIP-44 envelope
// decryptable only with the vendor's own key.
func (c *Commands) wrapDraft(inner nostr.Event, secretKey, pubKey string) (nostr.Event, error) {
	plain, err := json.Marshal(inner)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("encoding draft payload: %w", err)
	}
	convKey, err := nip44.GenerateConversationKey(pubKey, secretKey)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("deriving conversation key: %w", err)
	}
	ciphertext, err := nip44.Encrypt(string(plain), convKey)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("encrypting draft: %w", err)
	}

	return nostr.Event{
		Kind:      market.KindDraft,
		CreatedAt: inner.CreatedAt,
		Content:   ciphertext,
		Tags: nostr.Tags{
			{"d", inner.Tags.GetD()},
			{"k", strconv.Itoa(market.KindSection)},
		},
	}, nil
}

// AddItem publishes an item under a section. A zero ID gets a fresh UUID;
// the final ID is returned.
func (c *Commands) AddItem(ctx context.Context, secretKey string, info ItemInfo) (string, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if err := validateItem(info); err != nil {
		return "", err
	}

	content, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encoding item: %w", err)
	}

	ev := nostr.Event{
		Kind:      market.KindItem,
		CreatedAt: nostr.Now(),
		Content:   string(content),
		Tags:      nostr.Tags{{"d", info.ID}},
	}
	if err := c.sign(ctx, &ev, secretKey); err != nil {
		return "", err
	}
	return info.ID, nil
}

// SetSectionOrder publishes the vendor-level ordering overlay.
func (c *Commands) SetSectionOrder(ctx context.Context, secretKey string, ids []string) error {
	pk, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return fmt.Errorf("deriving public key: %w", err)
	}

	tags := nostr.Tags{{"d", market.OrderingSectionsTag}}
	for _, id := range ids {
		ref := market.Ref{Kind: market.KindSection, PubKey: pk, ID: id}
		tags = append(tags, nostr.Tag{"a", ref.String()})
	}

	ev := nostr.Event{
		Kind:      market.KindOrdering,
		CreatedAt: nostr.Now(),
		Tags:      tags,
	}
	return c.sign(ctx, &ev, secretKey)
}

// SetItemOrder publishes the ordering overlay for one section's items.
func (c *Commands) SetItemOrder(ctx context.Context, secretKey, sectionID string, ids []string) error {
	pk, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return fmt.Errorf("deriving public key: %w", err)
	}

	scope := market.Ref{Kind: market.KindSection, PubKey: pk, ID: sectionID}
	tags := nostr.Tags{{"d", scope.String()}}
	for _, id := range ids {
		ref := market.Ref{Kind: market.KindItem, PubKey: pk, ID: id}
		tags = append(tags, nostr.Tag{"a", ref.String()})
	}

	ev := nostr.Event{
		Kind:      market.KindOrdering,
		CreatedAt: nostr.Now(),
		Tags:      tags,
	}
	return c.sign(ctx, &ev, secretKey)
}

// Delete publishes a deletion event referencing the given entities.
func (c *Commands) Delete(ctx context.Context, secretKey string, refs []market.Ref) error {
	tags := nostr.Tags{}
	for _, ref := range refs {
		tags = append(tags, nostr.Tag{"a", ref.String()})
	}

	ev := nostr.Event{
		Kind:      market.KindDeletion,
		CreatedAt: nostr.Now(),
		Tags:      tags,
	}
	return c.sign(ctx, &ev, secretKey)
}

func (c *Commands) sign(ctx context.Context, ev *nostr.Event, secretKey string) error {
	if err := ev.Sign(secretKey); err != nil {
		return fmt.Errorf("signing event: %w", err)
	}
	if err := c.pub.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}
