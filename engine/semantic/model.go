package semantic

import "github.com/google/uuid"

// Payload keys written by Upsert alongside the caller's metadata.
const (
	PayloadText     = "text"
	PayloadRecordID = "record_id"
)

// VectorRecord is one embedded transcript block.
type VectorRecord struct {
	// ID is the deterministic record ID ("chunk_<n>_block_<id>").
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]any
}

// PointID maps a record ID to the UUIDv5 Qdrant stores it under. The same
// record ID always yields the same point, so re-indexing overwrites.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID       string         `json:"id"`
	PointID  string         `json:"point_id"`
	Score    float32        `json:"score"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// Condition matches a payload field against a keyword, integer or boolean.
type Condition struct {
	Key   string
	Value any
}

// Filter restricts a search. A point matches when it satisfies every Must
// condition and, if Should is non-empty, at least one Should condition.
type Filter struct {
	Must   []Condition
	Should []Condition
}

// Empty reports whether the filter has no conditions.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.Must) == 0 && len(f.Should) == 0)
}
