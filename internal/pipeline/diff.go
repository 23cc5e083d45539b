package pipeline

import "github.com/avirta/ytarchiver/internal/youtube"

// Diff computes the ordered subset of catalog entries not yet archived, and
// a lookup from video id to playlist-entry id built from the full listing.
// The map covers every entry — not just new ones — because the removal step
// needs the entry id without a second listing round trip. Catalog order is
// preserved so folder creation, removal, and reporting order are all
// reproducible for a fixed catalog snapshot.
func Diff(entries []youtube.PlaylistItem, archived map[string]bool) ([]youtube.PlaylistItem, map[string]string) {
	var newItems []youtube.PlaylistItem

	entryIDs := make(map[string]string, len(entries))

	for _, entry := range entries {
		entryIDs[entry.VideoID] = entry.ItemID

		if !archived[entry.VideoID] {
			newItems = append(newItems, entry)
		}
	}

	return newItems, entryIDs
}
