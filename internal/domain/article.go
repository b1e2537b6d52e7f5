package domain

import "time"

// Article is one piece of news context retrieved for a group topic.
// Sequences are ordered most-recent-first and bounded by the retriever.
type Article struct {
	Headline    string
	Summary     string
	SourceID    string
	PublishedAt time.Time
}
