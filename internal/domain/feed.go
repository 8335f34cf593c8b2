package domain

import "time"

// FeedItem is one entry in the syndication feed. GUID is derived
// deterministically from the originating submission so a retried event maps
// to the same logical item.
type FeedItem struct {
	Title       string
	Description string
	URL         string
	PublishedAt time.Time
	Author      string
	GUID        string
	Category    string
}
