package market

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

// fakeSub is an in-memory Subscription fed by tests.
type fakeSub struct {
	filters nostr.Filters
	events  chan *nostr.Event
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Events() <-chan *nostr.Event { return s.events }

func (s *fakeSub) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeFeed records every subscription it hands out.
type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
}

func (f *fakeFeed) Subscribe(_ context.Context, filters nostr.Filters) (Subscription, error) {
	sub := &fakeSub{filters: filters, events: make(chan *nostr.Event, 16)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

// deletionSubs returns the subscriptions narrowed to deletion events, in
// the order they were issued.
func (f *fakeFeed) deletionSubs() []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeSub
	for _, s := range f.subs {
		if len(s.filters) == 1 && len(s.filters[0].Kinds) == 1 && s.filters[0].Kinds[0] == KindDeletion {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeFeed) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// fakeDecrypter resolves ciphertexts from a fixed table.
type fakeDecrypter struct {
	plain map[string]string
	err   error
}

func (d fakeDecrypter) Decrypt(_ context.Context, ciphertext, _, _ string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.plain[ciphertext], nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeFeed) {
	t.Helper()
	feed := &fakeFeed{}
	opts = append([]Option{WithDebounce(5 * time.Millisecond)}, opts...)
	e := NewEngine(feed, opts...)
	t.Cleanup(e.Clear)
	return e, feed
}

func track(t *testing.T, e *Engine, pubkeys ...string) {
	t.Helper()
	require.NoError(t, e.TrackPubkeys(context.Background(), pubkeys))
}

func profileEvent(pub, name string, ts int64) *nostr.Event {
	content, _ := json.Marshal(profilePayload{Name: name, About: "about " + name, Picture: "https://example.com/" + name})
	return &nostr.Event{PubKey: pub, Kind: KindProfile, CreatedAt: nostr.Timestamp(ts), Content: string(content)}
}

func sectionEvent(pub, id, name string, ts int64) *nostr.Event {
	content, _ := json.Marshal(sectionPayload{ID: id, Name: name, Currency: "EUR"})
	return &nostr.Event{
		PubKey:    pub,
		Kind:      KindSection,
		CreatedAt: nostr.Timestamp(ts),
		Tags:      nostr.Tags{{"d", id}},
		Content:   string(content),
	}
}

func itemEvent(pub, id, sectionID, name string, ts int64) *nostr.Event {
	content, _ := json.Marshal(itemPayload{ID: id, StallID: sectionID, Name: name, Price: 9.95, Currency: "EUR"})
	return &nostr.Event{
		PubKey:    pub,
		Kind:      KindItem,
		CreatedAt: nostr.Timestamp(ts),
		Tags:      nostr.Tags{{"d", id}},
		Content:   string(content),
	}
}

func deletionEvent(pub string, ts int64, refs ...Ref) *nostr.Event {
	tags := nostr.Tags{}
	for _, ref := range refs {
		tags = append(tags, nostr.Tag{"a", ref.String()})
	}
	return &nostr.Event{PubKey: pub, Kind: KindDeletion, CreatedAt: nostr.Timestamp(ts), Tags: tags}
}

func orderingEvent(pub, d string, ts int64, refs ...Ref) *nostr.Event {
	tags := nostr.Tags{{"d", d}}
	for _, ref := range refs {
		tags = append(tags, nostr.Tag{"a", ref.String()})
	}
	return &nostr.Event{PubKey: pub, Kind: KindOrdering, CreatedAt: nostr.Timestamp(ts), Tags: tags}
}

func sectionRef(pub, id string) Ref { return Ref{Kind: KindSection, PubKey: pub, ID: id} }
func itemRef(pub, id string) Ref    { return Ref{Kind: KindItem, PubKey: pub, ID: id} }

// draftEvent wraps an inner section event whose "ciphertext" is resolvable
// by the fakeDecrypter table under the given key.
func draftEvent(pub, ciphertext, d string, ts int64) *nostr.Event {
	return &nostr.Event{
		PubKey:    pub,
		Kind:      KindDraft,
		CreatedAt: nostr.Timestamp(ts),
		Tags:      nostr.Tags{{"d", d}, {"k", strconv.Itoa(KindSection)}},
		Content:   ciphertext,
	}
}

func innerSectionJSON(t *testing.T, pub, id, name string, ts int64) string {
	t.Helper()
	b, err := json.Marshal(sectionEvent(pub, id, name, ts))
	require.NoError(t, err)
	return string(b)
}

func sectionIDs(v *Vendor) []string {
	ids := make([]string, 0, len(v.Sections))
	for _, s := range v.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func itemIDs(s *Section) []string {
	ids := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

// vendor fetches a vendor from a fresh snapshot.
func vendor(t *testing.T, e *Engine, pub string) *Vendor {
	t.Helper()
	for _, v := range e.Snapshot().Vendors {
		if v.PubKey == pub {
			return v
		}
	}
	t.Fatalf("vendor %s not tracked", pub)
	return nil
}
