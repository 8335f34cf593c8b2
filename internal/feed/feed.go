// Package feed owns the syndication feed document and its durable snapshot.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/feeds"
	"github.com/mmcdole/gofeed"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
	"github.com/allenheltondev/bis-rss-feed/internal/storage"
)

// snapshotStore is the subset of the tiered store the synthesizer requires.
// *storage.Store satisfies this interface.
type snapshotStore interface {
	LoadString(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key string, value []byte, opts ...storage.SaveOption) error
}

// Channel is the fixed channel metadata for the feed.
type Channel struct {
	Title       string
	Description string
	FeedURL     string
	SiteURL     string
	Language    string
}

// Synthesizer maintains the in-memory feed and persists a full snapshot after
// every accepted append. All mutation is funneled through a single mutex so
// concurrent link handlers cannot interleave an append with a persist.
type Synthesizer struct {
	store   snapshotStore
	key     string
	channel Channel

	mu          sync.Mutex
	rss         *feeds.RssFeed
	initialized bool
}

// New creates a Synthesizer persisting its snapshot under key. Initialize
// must be called before any append.
func New(store snapshotStore, key string, channel Channel) (*Synthesizer, error) {
	if store == nil {
		return nil, errors.New("feed: store must not be nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("feed: snapshot key must not be empty")
	}
	return &Synthesizer{
		store:   store,
		key:     key,
		channel: channel,
		rss: &feeds.RssFeed{
			Title:       channel.Title,
			Link:        channel.SiteURL,
			Description: channel.Description,
			Language:    channel.Language,
		},
	}, nil
}

// Initialize hydrates the feed from the most recent durable snapshot. An
// absent snapshot starts the feed empty; a snapshot that exists but fails to
// parse is fatal so the process never silently publishes a truncated feed.
func (s *Synthesizer) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errors.New("feed: already initialized")
	}

	raw, err := s.store.LoadString(ctx, s.key)
	if err != nil {
		return fmt.Errorf("feed: load snapshot: %w", err)
	}
	if raw != "" {
		parsed, err := gofeed.NewParser().ParseString(raw)
		if err != nil {
			return fmt.Errorf("feed: parse snapshot %q: %w", s.key, err)
		}
		for _, it := range parsed.Items {
			s.rss.Items = append(s.rss.Items, hydrateItem(it))
		}
	}

	s.initialized = true
	slog.Info("feed ready", "feed_url", s.channel.FeedURL, "items", len(s.rss.Items))
	return nil
}

// Append inserts item at the tail of the feed and persists the re-serialized
// snapshot with public visibility. An item whose GUID is already present is
// skipped so retried submissions stay idempotent.
func (s *Synthesizer) Append(ctx context.Context, item domain.FeedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("feed: not initialized")
	}

	for _, existing := range s.rss.Items {
		if existing.Guid != nil && existing.Guid.Id == item.GUID {
			slog.Info("feed already contains item", "guid", item.GUID)
			return nil
		}
	}

	s.rss.Items = append(s.rss.Items, &feeds.RssItem{
		Title:       item.Title,
		Link:        item.URL,
		Description: item.Description,
		Author:      item.Author,
		Category:    item.Category,
		Guid:        &feeds.RssGuid{Id: item.GUID, IsPermaLink: "false"},
		PubDate:     item.PublishedAt.UTC().Format(time.RFC1123Z),
	})

	xml, err := feeds.ToXML(s.rss)
	if err != nil {
		return fmt.Errorf("feed: serialize: %w", err)
	}
	if err := s.store.Save(ctx, s.key, []byte(xml), storage.Public()); err != nil {
		return fmt.Errorf("feed: persist snapshot: %w", err)
	}
	return nil
}

// Len returns the number of items currently in the feed.
func (s *Synthesizer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rss.Items)
}

// HasItem reports whether the feed already contains an item with the GUID.
func (s *Synthesizer) HasItem(guid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.rss.Items {
		if it.Guid != nil && it.Guid.Id == guid {
			return true
		}
	}
	return false
}

// hydrateItem maps a parsed snapshot item back into the wire representation,
// preserving order, guids, categories and the original publish date text.
func hydrateItem(it *gofeed.Item) *feeds.RssItem {
	out := &feeds.RssItem{
		Title:       it.Title,
		Link:        it.Link,
		Description: it.Description,
		PubDate:     it.Published,
	}
	if it.GUID != "" {
		out.Guid = &feeds.RssGuid{Id: it.GUID, IsPermaLink: "false"}
	}
	if len(it.Categories) > 0 {
		out.Category = it.Categories[0]
	}
	if it.Author != nil {
		out.Author = it.Author.Name
		if out.Author == "" {
			out.Author = it.Author.Email
		}
	}
	return out
}
