package models

import "time"

// Track is produced by the external Library. The only field the core
// requires is Path; Track identity for queue/dedup purposes is the Path
// string itself (see spec.md §3).
type Track struct {
	ID          string `json:"id,omitempty"`
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	AlbumID     string `json:"album_id,omitempty"`
	ArtistID    string `json:"artist_id,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Year        int    `json:"year,omitempty"`
	DiscNo      int    `json:"disc_no,omitempty"`
	TrackNo     int    `json:"track_no,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	BitDepth    int    `json:"bit_depth,omitempty"`
	Bitrate     int    `json:"bitrate,omitempty"`
	Channels    int    `json:"channels,omitempty"`
	HasArtwork  bool   `json:"has_artwork,omitempty"`
	Compilation bool   `json:"compilation,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
}

// PlaylistTrack is a denormalized snapshot of a Track placed in a queue.
// Carrying title/artist locally lets the queue survive a Library outage.
type PlaylistTrack struct {
	TrackID    string    `json:"track_id,omitempty"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	AlbumID    string    `json:"album_id,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	AddedAt    time.Time `json:"-"`
}

// PlaylistTrackFromTrack builds a PlaylistTrack snapshot from a resolved Track.
func PlaylistTrackFromTrack(t Track) PlaylistTrack {
	return PlaylistTrack{
		TrackID:    t.ID,
		Path:       t.Path,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		AlbumID:    t.AlbumID,
		DurationMS: t.DurationMS,
		AddedAt:    time.Now(),
	}
}

// RepeatMode controls playlist wraparound behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// ShuffleMode toggles randomized playback order.
type ShuffleMode int

const (
	ShuffleOff ShuffleMode = iota
	ShuffleOn
)

func (s ShuffleMode) String() string {
	if s == ShuffleOn {
		return "on"
	}
	return "off"
}
