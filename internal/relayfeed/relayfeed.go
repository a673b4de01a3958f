// Package relayfeed implements the engine's Feed and Publisher boundaries
// on top of real Nostr relay connections. Subscriptions fan events from
// every configured relay into a single channel; the engine deduplicates by
// timestamp, so redundant delivery across relays is harmless.
package relayfeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/openstall/marketfeed/internal/logging"
	"github.com/openstall/marketfeed/internal/market"
)

// Feed maintains connections to a fixed set of relays.
type Feed struct {
	log  logging.Logger
	urls []string

	mu     sync.Mutex
	relays []*nostr.Relay
}

// New returns a Feed for the given relay URLs. Connections are established
// lazily on the first Subscribe or Publish.
func New(urls []string, log logging.Logger) *Feed {
	return &Feed{log: log, urls: urls}
}

// connected returns the live relay connections, dialing any missing ones.
// At least one reachable relay is required.
func (f *Feed) connected(ctx context.Context) ([]*nostr.Relay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.relays != nil {
		return f.relays, nil
	}

	relays := make([]*nostr.Relay, 0, len(f.urls))
	for _, url := range f.urls {
		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			f.log.Warn(ctx, "relay unreachable", "url", url, "error", err)
			continue
		}
		relays = append(relays, relay)
	}
	if len(relays) == 0 {
		return nil, fmt.Errorf("no reachable relays out of %d configured", len(f.urls))
	}

	f.relays = relays
	return relays, nil
}

// Subscribe opens the filters on every connected relay and merges their
// event streams.
func (f *Feed) Subscribe(ctx context.Context, filters nostr.Filters) (market.Subscription, error) {
	relays, err := f.connected(ctx)
	if err != nil {
		return nil, err
	}

	s := &subscription{out: make(chan *nostr.Event)}
	for _, relay := range relays {
		sub, err := relay.Subscribe(ctx, filters)
		if err != nil {
			f.log.Warn(ctx, "subscribe failed", "url", relay.URL, "error", err)
			continue
		}
		s.subs = append(s.subs, sub)
	}
	if len(s.subs) == 0 {
		return nil, fmt.Errorf("no relay accepted the subscription")
	}

	for _, sub := range s.subs {
		s.wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer s.wg.Done()
			for ev := range sub.Events {
				s.out <- ev
			}
		}(sub)
	}
	go func() {
		s.wg.Wait()
		close(s.out)
	}()

	return s, nil
}

// Publish sends the event to every connected relay. It succeeds if at least
// one relay accepted it.
func (f *Feed) Publish(ctx context.Context, ev *nostr.Event) error {
	relays, err := f.connected(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	accepted := 0
	for _, relay := range relays {
		if err := relay.Publish(ctx, *ev); err != nil {
			f.log.Warn(ctx, "publish rejected", "url", relay.URL, "error", err)
			lastErr = err
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("no relay accepted event %s: %w", ev.ID, lastErr)
	}
	return nil
}

// Close disconnects from all relays.
func (f *Feed) Close() {
	f.mu.Lock()
	relays := f.relays
	f.relays = nil
	f.mu.Unlock()

	for _, relay := range relays {
		_ = relay.Close()
	}
}

type subscription struct {
	subs []*nostr.Subscription
	out  chan *nostr.Event
	wg   sync.WaitGroup
	once sync.Once
}

func (s *subscription) Events() <-chan *nostr.Event {
	return s.out
}

func (s *subscription) Close() {
	s.once.Do(func() {
		for _, sub := range s.subs {
			sub.Unsub()
		}
	})
}
