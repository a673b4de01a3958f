package market

// bufferOrphanLocked parks an item whose section has not been observed yet.
// Redelivered or older revisions of a buffered item are merged by timestamp
// so that draining yields the same result regardless of delivery order.
// Callers hold e.mu.
func (e *Engine) bufferOrphanLocked(sectionID string, it *Item) {
	buf := e.orphans[sectionID]
	for n, cur := range buf {
		if cur.ID == it.ID {
			if it.UpdatedAt > cur.UpdatedAt {
				buf[n] = it
			}
			return
		}
	}
	e.orphans[sectionID] = append(buf, it)
}

// drainOrphansLocked removes and returns the buffered items for a section,
// dropping any whose identifier has been tombstoned at or after their own
// timestamp. Callers hold e.mu.
func (e *Engine) drainOrphansLocked(sectionID string) []*Item {
	buf := e.orphans[sectionID]
	if buf == nil {
		return nil
	}
	delete(e.orphans, sectionID)

	items := make([]*Item, 0, len(buf))
	for _, it := range buf {
		if e.wasDeletedLocked(it.ID, it.UpdatedAt) {
			continue
		}
		items = append(items, it)
	}
	return items
}

// stashOrphansLocked moves a removed section's items back into the buffer so
// a later, newer re-creation of the section does not lose children that are
// themselves newer than the deletion. Callers hold e.mu.
func (e *Engine) stashOrphansLocked(sectionID string, items []*Item) {
	e.orphans[sectionID] = items
}
