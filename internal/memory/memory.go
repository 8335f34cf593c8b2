// Package memory keeps per-conversation message logs in the fast cache tier.
// History is session-scoped: it lives only as long as the cache entry, and is
// never written to durable storage.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
)

// listCache is the subset of the cache tier the log requires.
// *storage.Cache satisfies this interface.
type listCache interface {
	ListFetch(ctx context.Context, key string) ([]string, error)
	ListAppend(ctx context.Context, key string, values ...string) error
}

// Log is an append-only conversation history keyed by conversation id.
type Log struct {
	cache listCache
}

// NewLog creates a Log over the given cache tier.
func NewLog(cache listCache) (*Log, error) {
	if cache == nil {
		return nil, errors.New("memory: cache must not be nil")
	}
	return &Log{cache: cache}, nil
}

// History returns the stored messages for a conversation, oldest first. A
// missing conversation or a cache failure yields an empty history; the
// failure is logged, not raised, since history is an enrichment.
func (l *Log) History(ctx context.Context, conversationID string) []domain.Message {
	raw, err := l.cache.ListFetch(ctx, conversationID)
	if err != nil {
		slog.Error("failed to fetch conversation history", "conversation_id", conversationID, "err", err)
		return nil
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, r := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			slog.Error("skipping malformed history entry", "conversation_id", conversationID, "err", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// Append pushes messages onto the tail of a conversation, preserving the
// order given.
func (l *Log) Append(ctx context.Context, conversationID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	encoded := make([]string, len(msgs))
	for i, m := range msgs {
		body, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("memory: encode message: %w", err)
		}
		encoded[i] = string(body)
	}
	if err := l.cache.ListAppend(ctx, conversationID, encoded...); err != nil {
		return fmt.Errorf("memory: append to conversation %q: %w", conversationID, err)
	}
	return nil
}
