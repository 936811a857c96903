// Package graph keeps a Neo4j graph of indexed exchanges: which video each
// exchange came from and which tag values it carries. It answers the
// questions the vector index cannot, such as which settings occur most.
package graph

import (
	"github.com/google/uuid"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// Video is a source video.
type Video struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// VideoID derives a stable node id from a video URL.
func VideoID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// NewVideo builds the Video node for url.
func NewVideo(url string) Video {
	return Video{ID: VideoID(url), URL: url, Platform: string(domain.DetectPlatform(url))}
}

// Exchange is one tagged block. Its id is the same record id the vector
// index uses, so graph hits can be joined back to vector payloads.
type Exchange struct {
	ID          string `json:"id"`
	VideoID     string `json:"video_id"`
	ChunkNumber int    `json:"chunk_number"`
	BlockID     string `json:"block_id"`
	Summary     string `json:"summary,omitempty"`
	StartLine   int    `json:"start_line,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
}

// Tag is one key/value pair attached to exchanges.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TagCount is how many exchanges carry a tag value.
type TagCount struct {
	Value     string `json:"value"`
	Exchanges int64  `json:"exchanges"`
}
