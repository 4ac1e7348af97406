package models

// RefKind classifies what a parsed URL token points at.
type RefKind string

const (
	RefVideo    RefKind = "video"
	RefChannel  RefKind = "channel"
	RefPlaylist RefKind = "playlist"
)

// ParsedRef is the typed result of URL parsing: what to fetch and,
// optionally, how many items of it.
type ParsedRef struct {
	Kind    RefKind `json:"type"`
	ID      string  `json:"url"`
	VidType VidType `json:"vid_type"`
	Limit   *int    `json:"limit,omitempty"`
}
