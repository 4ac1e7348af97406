package models

// PlaylistType distinguishes remote playlists from locally curated ones.
const (
	PlaylistTypeRegular = "regular"
	PlaylistTypeCustom  = "custom"
)

// PlaylistEntry is one position inside a playlist.
type PlaylistEntry struct {
	YoutubeID  string `json:"youtube_id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	Idx        int    `json:"idx"`
	Downloaded bool   `json:"downloaded"`
}

// Playlist is the indexed playlist document. Custom playlists have no
// remote channel and their entries are reorderable.
type Playlist struct {
	PlaylistID          string          `json:"playlist_id"`
	PlaylistActive      bool            `json:"playlist_active"`
	PlaylistSubscribed  bool            `json:"playlist_subscribed"`
	PlaylistType        string          `json:"playlist_type"`
	PlaylistName        string          `json:"playlist_name"`
	PlaylistDescription string          `json:"playlist_description,omitempty"`
	PlaylistChannel     string          `json:"playlist_channel"`
	PlaylistChannelID   string          `json:"playlist_channel_id"`
	PlaylistEntries     []PlaylistEntry `json:"playlist_entries"`
	PlaylistSortOrder   string          `json:"playlist_sort_order,omitempty"`
	PlaylistLastRefresh int64           `json:"playlist_last_refresh"`
	PlaylistThumbnail   string          `json:"playlist_thumbnail"`
}

// IsCustom reports whether the playlist is locally curated.
func (p *Playlist) IsCustom() bool {
	return p.PlaylistType == PlaylistTypeCustom
}

// MoveEntry reorders a custom playlist entry. Direction is one of
// "up", "down", "top", "bottom", "remove". Returns false when the id is
// not present.
func (p *Playlist) MoveEntry(youtubeID, direction string) bool {
	pos := -1
	for i, e := range p.PlaylistEntries {
		if e.YoutubeID == youtubeID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return false
	}

	entries := p.PlaylistEntries
	switch direction {
	case "up":
		if pos > 0 {
			entries[pos-1], entries[pos] = entries[pos], entries[pos-1]
		}
	case "down":
		if pos < len(entries)-1 {
			entries[pos+1], entries[pos] = entries[pos], entries[pos+1]
		}
	case "top":
		e := entries[pos]
		entries = append(entries[:pos], entries[pos+1:]...)
		entries = append([]PlaylistEntry{e}, entries...)
	case "bottom":
		e := entries[pos]
		entries = append(entries[:pos], entries[pos+1:]...)
		entries = append(entries, e)
	case "remove":
		entries = append(entries[:pos], entries[pos+1:]...)
	default:
		return false
	}

	for i := range entries {
		entries[i].Idx = i
	}
	p.PlaylistEntries = entries
	return true
}
