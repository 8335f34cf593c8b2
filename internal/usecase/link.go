package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Invoke(ctx context.Context, model string, messages []domain.Message, system string) (string, error)
}

// ConversationLog keeps per-conversation history. History failures are
// swallowed by the implementation; Append failures are returned.
type ConversationLog interface {
	History(ctx context.Context, conversationID string) []domain.Message
	Append(ctx context.Context, conversationID string, msgs ...domain.Message) error
}

type SiteScraper interface {
	Scrape(ctx context.Context, url string) (domain.Site, error)
}

type FeedAppender interface {
	Append(ctx context.Context, item domain.FeedItem) error
}

type SubmissionRegistry interface {
	Seen(ctx context.Context, submissionID, link string) (bool, error)
	MarkProcessed(ctx context.Context, submissionID, link string, accepted bool) error
}

// LinkService orchestrates a submitted link from scrape through publish. It
// is also the sole LLM entry point: Chat is a generic conversation primitive
// with memory, used for both relevance scoring and description enrichment.
type LinkService struct {
	params      ParamGetter
	llm         LLMClient
	history     ConversationLog
	scraper     SiteScraper
	feed        FeedAppender
	registry    SubmissionRegistry
	paramPrefix string

	cacheMu     sync.RWMutex
	cacheLoaded bool
	profile     string
	modelID     string
}

// NewLinkService wires the pipeline's collaborators. The community profile
// and model id are loaded from SSM under paramPrefix on first use.
func NewLinkService(p ParamGetter, llm LLMClient, history ConversationLog, scraper SiteScraper, feed FeedAppender, registry SubmissionRegistry, paramPrefix string) (*LinkService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if history == nil {
		return nil, errors.New("usecase: conversation log must not be nil")
	}
	if scraper == nil {
		return nil, errors.New("usecase: scraper must not be nil")
	}
	if feed == nil {
		return nil, errors.New("usecase: feed must not be nil")
	}
	if registry == nil {
		return nil, errors.New("usecase: registry must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	return &LinkService{
		params:      p,
		llm:         llm,
		history:     history,
		scraper:     scraper,
		feed:        feed,
		registry:    registry,
		paramPrefix: paramPrefix,
	}, nil
}

type ChatInput struct {
	ConversationID string
	Message        string
	SystemMessage  string
}

type ChatOutput struct {
	Reply          string
	ConversationID string
}

// Chat prepends the stored history for the conversation, invokes the model
// with the combined transcript, and records both new turns. When no
// conversation id is given a fresh one is generated and returned so the
// caller can continue the conversation.
func (s *LinkService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return ChatOutput{}, newError(ErrorCollaborator, "ssm_load_error", err)
	}

	convID := strings.TrimSpace(in.ConversationID)
	var messages []domain.Message
	if convID == "" {
		convID = newUUID()
	} else {
		messages = s.history.History(ctx, convID)
	}

	userTurn := domain.UserMessage(message)
	messages = append(messages, userTurn)

	reply, err := s.llm.Invoke(ctx, s.modelID, messages, in.SystemMessage)
	if err != nil {
		return ChatOutput{}, newError(ErrorCollaborator, "llm_error", err)
	}

	// Record the user turn and the reply as a pair so the stored history
	// always alternates.
	if err := s.history.Append(ctx, convID, userTurn, domain.AssistantMessage(reply)); err != nil {
		slog.Error("failed to record conversation turns", "conversation_id", convID, "err", err)
	}

	return ChatOutput{Reply: reply, ConversationID: convID}, nil
}

// LinkResult reports the outcome for one link of a submission.
type LinkResult struct {
	Link     string
	Accepted bool
}

// HandleSubmission extracts the links from a submission, processes them
// concurrently, and gathers the per-link outcomes. A submission with no
// links returns nil without touching any collaborator.
func (s *LinkService) HandleSubmission(ctx context.Context, sub domain.Submission) []LinkResult {
	links := extractLinks(sub.Content)
	if len(links) == 0 {
		return nil
	}

	results := make([]LinkResult, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		go func(i int, link string) {
			defer wg.Done()
			results[i] = LinkResult{Link: link, Accepted: s.HandleLink(ctx, sub, link, i)}
		}(i, link)
	}
	wg.Wait()
	return results
}

// HandleLink runs the pipeline for a single link. Every failure is caught
// here, logged with enough context for manual replay, and reported as not
// accepted; processing one link never crashes the caller.
func (s *LinkService) HandleLink(ctx context.Context, sub domain.Submission, link string, index int) bool {
	accepted, err := s.handleLink(ctx, sub, link, index)
	if err != nil {
		slog.Error("link processing failed", "submission_id", sub.ID, "link", link, "err", err)
		return false
	}
	return accepted
}

func (s *LinkService) handleLink(ctx context.Context, sub domain.Submission, link string, index int) (bool, error) {
	seen, err := s.registry.Seen(ctx, sub.ID, link)
	if err != nil {
		// Dedup is best-effort; an unavailable registry must not block
		// publishing.
		slog.Warn("registry lookup failed", "submission_id", sub.ID, "link", link, "err", err)
	} else if seen {
		slog.Info("skipping already processed link", "submission_id", sub.ID, "link", link)
		return false, nil
	}

	site, err := s.scraper.Scrape(ctx, link)
	if err != nil {
		return false, newError(ErrorCollaborator, "scrape_error", err)
	}

	if err := s.ensureConfig(ctx); err != nil {
		return false, newError(ErrorCollaborator, "ssm_load_error", err)
	}

	out, err := s.Chat(ctx, ChatInput{
		ConversationID: sub.ID,
		Message:        relevancePrompt(s.profile, site),
	})
	if err != nil {
		return false, err
	}

	verdict, err := parseVerdict(out.Reply)
	if err != nil {
		return false, newError(ErrorMalformedVerdict, "unparseable_verdict", err)
	}
	if verdict < acceptThreshold {
		slog.Info("link rejected", "submission_id", sub.ID, "link", link, "verdict", verdict)
		s.markProcessed(ctx, sub.ID, link, false)
		return false, nil
	}

	description := site.Description
	if len(sub.Recent) > 1 {
		enriched, err := s.Chat(ctx, ChatInput{
			ConversationID: sub.ID,
			Message:        contextPrompt(buildTranscript(sub.Recent)),
		})
		if err != nil {
			return false, err
		}
		description = strings.TrimSpace(enriched.Reply)
	}

	item := domain.FeedItem{
		Title:       site.Title,
		Description: description,
		URL:         site.URL,
		PublishedAt: sub.Timestamp,
		Author:      sub.Author,
		GUID:        itemGUID(sub.ID, index),
		Category:    sub.Channel,
	}
	if err := s.feed.Append(ctx, item); err != nil {
		return false, newError(ErrorCollaborator, "feed_persist_error", err)
	}

	s.markProcessed(ctx, sub.ID, link, true)
	slog.Info("link published", "submission_id", sub.ID, "link", link, "verdict", verdict, "guid", item.GUID)
	return true, nil
}

func (s *LinkService) markProcessed(ctx context.Context, submissionID, link string, accepted bool) {
	if err := s.registry.MarkProcessed(ctx, submissionID, link, accepted); err != nil {
		slog.Warn("failed to record processed link", "submission_id", submissionID, "link", link, "err", err)
	}
}

// ensureConfig loads the community profile and model id from SSM once and
// caches them for the process lifetime.
func (s *LinkService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	profile, err := s.params.GetParameter(ctx, s.paramPrefix+"/community-profile")
	if err != nil {
		return err
	}
	modelID, err := s.params.GetParameter(ctx, s.paramPrefix+"/model-id")
	if err != nil {
		return err
	}

	s.profile = profile
	s.modelID = modelID
	s.cacheLoaded = true
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
