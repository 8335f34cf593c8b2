package domain

import "time"

// Submission is a chat message that may contain links to evaluate. It carries
// only the fields the pipeline reads; the gateway adapter owns the mapping
// from platform events.
type Submission struct {
	ID        string
	Author    string
	Channel   string
	Timestamp time.Time
	Content   string
	// Recent is the surrounding conversation window, oldest first, including
	// the submission itself. Used to enrich accepted feed items.
	Recent []ContextMessage
}

// ContextMessage is one message from the channel window around a submission.
type ContextMessage struct {
	Author  string
	Content string
}

// Site holds the OpenGraph metadata scraped for a submitted link. Read-only
// input to the pipeline.
type Site struct {
	URL          string
	Title        string
	Description  string
	Type         string
	CanonicalURL string
	SiteName     string
}
