package market

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref is an address reference to a replaceable event, the wire form used in
// "a" tags: "kind:pubkey:logicalID".
type Ref struct {
	Kind   int
	PubKey string
	ID     string
}

// ParseRef parses the "kind:pubkey:logicalID" wire form.
func ParseRef(s string) (Ref, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Ref{}, fmt.Errorf("malformed reference %q", s)
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return Ref{}, fmt.Errorf("malformed reference kind %q: %w", parts[0], err)
	}
	return Ref{Kind: kind, PubKey: parts[1], ID: parts[2]}, nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%s:%s", r.Kind, r.PubKey, r.ID)
}

// IsSection reports whether the reference names a section, in either its
// public or draft form.
func (r Ref) IsSection() bool {
	return r.Kind == KindSection || r.Kind == KindDraft
}

// IsItem reports whether the reference names an item.
func (r Ref) IsItem() bool {
	return r.Kind == KindItem
}
