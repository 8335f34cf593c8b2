package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
	"github.com/allenheltondev/bis-rss-feed/internal/usecase"
)

type nopHandler struct{}

func (nopHandler) HandleSubmission(context.Context, domain.Submission) []usecase.LinkResult {
	return nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", nopHandler{}, 5)
	require.Error(t, err)

	_, err = New("token", nil, 5)
	require.Error(t, err)
}

func TestNew_SetsMessageContentIntent(t *testing.T) {
	b, err := New("token", nopHandler{}, 5)
	require.NoError(t, err)
	require.NotZero(t, b.session.Identify.Intents&discordgo.IntentMessageContent)
	require.NotZero(t, b.session.Identify.Intents&discordgo.IntentsGuildMessages)
}

func TestBuildSubmission(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := &discordgo.Message{
		ID:        "msg-42",
		ChannelID: "chan-1",
		Content:   "check out https://example.com/a",
		Timestamp: ts,
		Author:    &discordgo.User{Username: "allen", Discriminator: "0"},
	}
	recent := []domain.ContextMessage{
		{Author: "sam", Content: "anyone tried this?"},
		{Author: "allen", Content: "check out https://example.com/a"},
	}

	sub := buildSubmission(msg, "general", recent)
	require.Equal(t, "msg-42", sub.ID)
	require.Equal(t, "general", sub.Channel)
	require.Equal(t, ts, sub.Timestamp)
	require.Equal(t, "check out https://example.com/a", sub.Content)
	require.Equal(t, recent, sub.Recent)
	require.Contains(t, sub.Author, "allen")
}
