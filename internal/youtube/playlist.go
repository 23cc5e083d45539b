package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// pageSize is the playlistItems.list page size (API maximum).
const pageSize = 50

// Titles the API substitutes for entries whose video is gone. Such entries
// carry no downloadable content and are excluded from listings.
const (
	titleDeleted = "Deleted video"
	titlePrivate = "Private video"
)

// PlaylistItem is one visible row of a remote playlist. ItemID is the
// playlist-entry identifier used for deletion; VideoID identifies the video
// itself. The two are distinct: the same video added twice yields two ItemIDs.
type PlaylistItem struct {
	ItemID       string
	VideoID      string
	Title        string
	ChannelTitle string
	PublishedAt  string
	Position     int64
}

// playlistItemsResponse mirrors the playlistItems.list JSON envelope.
type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title                  string `json:"title"`
			PublishedAt            string `json:"publishedAt"`
			VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
			Position               int64  `json:"position"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// PlaylistIDFromURL extracts the playlist ID (the "list" query parameter)
// from a YouTube playlist URL.
func PlaylistIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("youtube: parsing playlist url %q: %w", raw, err)
	}

	id := u.Query().Get("list")
	if id == "" {
		return "", fmt.Errorf("youtube: playlist url %q has no list parameter", raw)
	}

	return id, nil
}

// WatchURL returns the canonical watch URL for a video ID. This is the
// locator handed to the retrieval executable.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ListPlaylistItems fetches every visible entry of a playlist, paginating
// internally. Entries without a video ID and entries whose video has been
// deleted or made private are excluded — they cannot be archived. The
// returned slice preserves playlist order.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("youtube: playlist id is empty")
	}

	var items []PlaylistItem

	pageToken := ""
	for {
		path := fmt.Sprintf("/playlistItems?part=snippet%%2CcontentDetails&maxResults=%d&playlistId=%s",
			pageSize, url.QueryEscape(playlistID))
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page playlistItemsResponse
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("listing playlist %s: %w", playlistID, err)
		}

		for _, it := range page.Items {
			item := PlaylistItem{
				ItemID:       it.ID,
				VideoID:      it.ContentDetails.VideoID,
				Title:        it.Snippet.Title,
				ChannelTitle: it.Snippet.VideoOwnerChannelTitle,
				PublishedAt:  it.Snippet.PublishedAt,
				Position:     it.Snippet.Position,
			}

			if item.VideoID == "" || item.Title == titleDeleted || item.Title == titlePrivate {
				c.logger.Debug("skipping inaccessible playlist entry", slog.String("item_id", item.ItemID))
				continue
			}

			items = append(items, item)
		}

		if page.NextPageToken == "" {
			break
		}

		pageToken = page.NextPageToken
	}

	c.logger.Info("playlist listing complete",
		slog.String("playlist_id", playlistID),
		slog.Int("items", len(items)),
	)

	return items, nil
}

// DeletePlaylistItem removes one entry from a playlist by its playlist-entry
// identifier. The caller already holds the ItemID from the listing step, so
// no extra lookup round trip happens here.
func (c *Client) DeletePlaylistItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("youtube: playlist item id is empty")
	}

	resp, err := c.do(ctx, http.MethodDelete, "/playlistItems?id="+url.QueryEscape(itemID))
	if err != nil {
		return fmt.Errorf("deleting playlist item %s: %w", itemID, err)
	}
	resp.Body.Close()

	c.logger.Info("playlist entry removed", slog.String("item_id", itemID))

	return nil
}
