package market

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemCreateAndRevise(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, sectionEvent("pub1", "s1", "Produce", 5))
	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Apples", 10))

	s := vendor(t, e, "pub1").Sections[0]
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Apples", s.Items[0].Name)

	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Green Apples", 20))
	s = vendor(t, e, "pub1").Sections[0]
	assert.Equal(t, "Green Apples", s.Items[0].Name)
	assert.Equal(t, nostr.Timestamp(20), s.Items[0].UpdatedAt)

	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Stale", 20))
	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Staler", 15))
	s = vendor(t, e, "pub1").Sections[0]
	assert.Equal(t, "Green Apples", s.Items[0].Name)
}

func TestItemBeforeSectionIsBuffered(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	// Item arrives first, with a timestamp after the section's.
	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Apples", 10))
	assert.Empty(t, vendor(t, e, "pub1").Sections)

	e.Apply(ctx, sectionEvent("pub1", "s1", "Produce", 5))

	s := vendor(t, e, "pub1").Sections[0]
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Apples", s.Items[0].Name)
}

func TestOrphanBufferMergesByTimestamp(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Old", 10))
	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "New", 20))
	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Old again", 10))

	e.Apply(ctx, sectionEvent("pub1", "s1", "Produce", 5))

	s := vendor(t, e, "pub1").Sections[0]
	require.Len(t, s.Items, 1)
	assert.Equal(t, "New", s.Items[0].Name)
}

func TestOrphanDroppedWhenTombstoned(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, itemEvent("pub1", "i1", "s1", "Doomed", 10))
	e.Apply(ctx, itemEvent("pub1", "i2", "s1", "Survivor", 30))
	e.Apply(ctx, deletionEvent("pub1", 20, itemRef("pub1", "i1"), itemRef("pub1", "i2")))

	e.Apply(ctx, sectionEvent("pub1", "s1", "Produce", 5))

	// i1 was tombstoned at or after its timestamp; i2 outlives the deletion.
	s := vendor(t, e, "pub1").Sections[0]
	assert.Equal(t, []string{"i2"}, itemIDs(s))
}

func TestItemForUntrackedVendorIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	track(t, e, "pub1")
	ctx := context.Background()

	e.Apply(ctx, itemEvent("pub2", "i1", "s1", "Apples", 10))
	e.Apply(ctx, sectionEvent("pub1", "s1", "Produce", 5))

	assert.Empty(t, vendor(t, e, "pub1").Sections[0].Items)
}
