// Package discord adapts Discord gateway events into link submissions.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
	"github.com/allenheltondev/bis-rss-feed/internal/usecase"
)

const handleTimeout = 2 * time.Minute

// LinkHandler processes the links in one submission.
// *usecase.LinkService satisfies this interface.
type LinkHandler interface {
	HandleSubmission(ctx context.Context, sub domain.Submission) []usecase.LinkResult
}

// Bot is a thin gateway consumer: it listens for messages, maps them to
// submissions, and hands them to the pipeline.
type Bot struct {
	session      *discordgo.Session
	handler      LinkHandler
	recentWindow int
}

// New creates a Bot for the given bot token. recentWindow is how many
// preceding channel messages are attached to each submission as context.
func New(token string, handler LinkHandler, recentWindow int) (*Bot, error) {
	if token == "" {
		return nil, errors.New("discord: token must not be empty")
	}
	if handler == nil {
		return nil, errors.New("discord: handler must not be nil")
	}
	if recentWindow < 0 {
		recentWindow = 0
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	b := &Bot{session: session, handler: handler, recentWindow: recentWindow}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

// Open connects to the gateway and starts dispatching events.
func (b *Bot) Open() error {
	return b.session.Open()
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("logged in", "user", r.User.String())
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	sub := buildSubmission(m.Message, b.channelName(s, m.ChannelID), b.recentMessages(s, m))

	// Gateway handlers run on the event loop; process off it. The pipeline
	// reports per-link outcomes and never panics, so fire and move on.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		results := b.handler.HandleSubmission(ctx, sub)
		for _, r := range results {
			slog.Info("submission link handled", "submission_id", sub.ID, "link", r.Link, "accepted", r.Accepted)
		}
	}()
}

func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil && ch != nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		slog.Warn("failed to resolve channel", "channel_id", channelID, "err", err)
		return ""
	}
	return ch.Name
}

// recentMessages fetches the window of messages preceding m, oldest first.
// A window that cannot be fetched degrades to just the submission itself.
func (b *Bot) recentMessages(s *discordgo.Session, m *discordgo.MessageCreate) []domain.ContextMessage {
	var window []domain.ContextMessage
	if b.recentWindow > 0 {
		prior, err := s.ChannelMessages(m.ChannelID, b.recentWindow, m.ID, "", "")
		if err != nil {
			slog.Warn("failed to fetch recent messages", "channel_id", m.ChannelID, "err", err)
		} else {
			// ChannelMessages returns newest first.
			for i := len(prior) - 1; i >= 0; i-- {
				if prior[i].Author == nil {
					continue
				}
				window = append(window, domain.ContextMessage{
					Author:  prior[i].Author.Username,
					Content: prior[i].Content,
				})
			}
		}
	}
	return append(window, domain.ContextMessage{Author: m.Author.Username, Content: m.Content})
}

func buildSubmission(m *discordgo.Message, channel string, recent []domain.ContextMessage) domain.Submission {
	return domain.Submission{
		ID:        m.ID,
		Author:    m.Author.String(),
		Channel:   channel,
		Timestamp: m.Timestamp,
		Content:   m.Content,
		Recent:    recent,
	}
}
