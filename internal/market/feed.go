package market

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
)

// Feed delivers events matching a filter set from the relay network. The
// engine owns at most two subscriptions at a time: the main one covering the
// tracked authors and a narrowed one for deletion events.
type Feed interface {
	// Subscribe opens a subscription for the given filters. The engine
	// replaces subscriptions wholesale; it never mutates filters in place.
	Subscribe(ctx context.Context, filters nostr.Filters) (Subscription, error)
}

// Subscription is one open filter registration.
type Subscription interface {
	// Events returns the stream of matching events. The channel is closed
	// when the subscription ends.
	Events() <-chan *nostr.Event

	// Close stops the subscription and releases its resources.
	Close()
}

// Publisher sends signed events to the relay network.
type Publisher interface {
	Publish(ctx context.Context, ev *nostr.Event) error
}

// Decrypter decodes a draft ciphertext with the vendor's key material. An
// implementation may suspend indefinitely, e.g. while waiting for a remote
// signer to approve; the engine never assumes bounded latency.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext, secretKey, pubKey string) (string, error)
}

// NIP44Decrypter decrypts locally using the NIP-44 conversation key of the
// vendor's own keypair.
type NIP44Decrypter struct{}

func (NIP44Decrypter) Decrypt(_ context.Context, ciphertext, secretKey, pubKey string) (string, error) {
	key, err := nip44.GenerateConversationKey(pubKey, secretKey)
	if err != nil {
		return "", err
	}
	return nip44.Decrypt(ciphertext, key)
}
