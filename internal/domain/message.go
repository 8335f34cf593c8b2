package domain

// Message is a single conversation turn exchanged with the LLM. Messages are
// JSON-encoded when stored in the conversation cache, so the field tags are
// part of the persisted shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserMessage and AssistantMessage are shorthand constructors for the two
// roles the conversation log records.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
