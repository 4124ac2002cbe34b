package domain

import (
	"strings"
	"time"
)

// Point is a WGS84 coordinate pair, longitude first.
type Point struct {
	Lng float64
	Lat float64
}

// Interest represents a published interest post.
type Interest struct {
	// ID is the store-assigned identifier of the post.
	ID string

	// AuthorID identifies the user who published the post.
	AuthorID string

	// AuthorName is the author's display name, carried into notifications.
	AuthorName string

	// Title is the required headline of the post.
	Title string

	// Description is the free-text body.
	Description string

	// Tags is the normalized tag set of the post. See NormalizeTags.
	Tags []string

	// Location is where the post was published. Nil means the author had no
	// saved location; such a post can be persisted but never fanned out.
	Location *Point

	// CreatedAt is when the post was persisted.
	CreatedAt time.Time
}

// Candidate is a user returned by the spatial query, prior to affinity
// filtering.
type Candidate struct {
	UserID   string
	Location Point

	// Tags is the user's declared interest tag set.
	Tags []string
}

// Notification is the payload pushed to a matched user's live connections.
// It is ephemeral; loss on delivery failure is acceptable.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedBy   string   `json:"createdBy"`
}

// NotificationFor builds the wire payload for an interest post.
func NotificationFor(interest *Interest) *Notification {
	return &Notification{
		Title:       interest.Title,
		Description: interest.Description,
		Tags:        interest.Tags,
		CreatedBy:   interest.AuthorName,
	}
}

// NormalizeTags lowercases and trims each tag, drops empties, and removes
// duplicates while keeping the first occurrence. It is the single
// normalization point for both post tags and user interest tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
