package market

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
)

func TestProfileUpdatesTrackedVendor(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, profileEvent("pub1", "Corner Store", 10))

	v := vendor(t, e, "pub1")
	assert.Equal(t, "Corner Store", v.Name)
	assert.Equal(t, "about Corner Store", v.About)
	assert.Equal(t, nostr.Timestamp(10), v.UpdatedAt)
}

func TestProfileNeverCreatesVendor(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")

	e.Apply(context.Background(), profileEvent("pub2", "Stranger", 10))

	snap := e.Snapshot()
	assert.Len(t, snap.Vendors, 1)
	assert.Equal(t, "pub1", snap.Vendors[0].PubKey)
}

func TestProfileLastWriterWins(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, profileEvent("pub1", "Newer", 20))
	e.Apply(ctx, profileEvent("pub1", "Older", 10))
	e.Apply(ctx, profileEvent("pub1", "Same", 20))

	assert.Equal(t, "Newer", vendor(t, e, "pub1").Name)
}

func TestProfileMalformedContentIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")

	e.Apply(context.Background(), &nostr.Event{
		PubKey: "pub1", Kind: KindProfile, CreatedAt: 10, Content: "{broken",
	})

	assert.Empty(t, vendor(t, e, "pub1").Name)
}
