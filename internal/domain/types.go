package domain

import "time"

// Note is a stored piece of text with its tag associations.
// Everything but the tag links is immutable after creation.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a free-form label, created lazily the first time a note references it.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchResult is a note returned by semantic search, with its cosine
// distance to the query (lower is closer).
type SearchResult struct {
	Note     Note    `json:"note"`
	Distance float64 `json:"distance"`
}

// Similarity converts the result's cosine distance back to a similarity.
func (r SearchResult) Similarity() float64 {
	return 1 - r.Distance
}

// TagCount is a tag name with the number of notes carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes the note store.
type Stats struct {
	TotalNotes  int        `json:"total_notes"`
	RecentNotes int        `json:"recent_notes"` // created in the last 7 days
	TotalTags   int        `json:"total_tags"`
	TagUsage    []TagCount `json:"tag_usage,omitempty"`
}
