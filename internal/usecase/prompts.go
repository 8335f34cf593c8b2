package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
)

// acceptThreshold is the relevance cutoff: a verdict below it never mutates
// the feed.
const acceptThreshold = 7

var (
	verdictPattern = regexp.MustCompile(`<relevance>(.*?)</relevance>`)
	linkPattern    = regexp.MustCompile(`https?://[^\s<>()]+`)
)

func relevancePrompt(profile string, site domain.Site) string {
	return fmt.Sprintf(`Determine if the webpage details provided below are technically relevant to the following community. Return your answer in a <relevance> tag on a scale of 1-10, with 1 being not at all relevant and 10 being extremely relevant.
Community:
  %s
Details:
  url: %s
  title: %s
  description: %s
  type: %s
  canonical url: %s
  site name: %s
`, profile, site.URL, site.Title, site.Description, site.Type, site.CanonicalURL, site.SiteName)
}

func contextPrompt(transcript string) string {
	return fmt.Sprintf(`Given the following conversation thread, determine if there is any relevant context that should be shared when creating an rss feed item for the link. Make your response contain only the description that should be included in the rss feed item. It should be a combination of conversational context and description from the page metadata.
Conversation:
  %s`, transcript)
}

// parseVerdict extracts the integer wrapped in the relevance tag. A missing
// tag or non-numeric value is a hard failure for the link being scored.
func parseVerdict(answer string) (int, error) {
	m := verdictPattern.FindStringSubmatch(answer)
	if m == nil {
		return 0, fmt.Errorf("usecase: no relevance tag in answer %q", truncate(answer, 120))
	}
	verdict, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return 0, fmt.Errorf("usecase: non-numeric relevance %q: %w", m[1], err)
	}
	return verdict, nil
}

// extractLinks returns the URLs found in a submission's content, in order.
func extractLinks(content string) []string {
	return linkPattern.FindAllString(content, -1)
}

func buildTranscript(messages []domain.ContextMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Author, m.Content))
	}
	return strings.Join(lines, "\n")
}

// itemGUID derives a deterministic feed item id from the submission and the
// link's position in it. The first link keeps the bare submission id so guids
// from previously published snapshots stay stable.
func itemGUID(submissionID string, index int) string {
	if index == 0 {
		return submissionID
	}
	return submissionID + "#" + strconv.Itoa(index)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
