package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/repo"
)

// GraphStore writes and queries the tag graph.
//
//	(:Video)-[:CONTAINS]->(:Exchange)-[:TAGGED]->(:Tag {key, value})
type GraphStore struct {
	videos    *repo.Neo4jRepo[Video, string]
	exchanges *repo.Neo4jRepo[Exchange, string]
}

// New creates a GraphStore on a Neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return NewWithSessions(repo.DriverSessions(driver))
}

// NewWithSessions creates a GraphStore on an arbitrary session factory.
func NewWithSessions(sessions repo.SessionFactory) *GraphStore {
	return &GraphStore{
		videos:    newVideoRepo(sessions),
		exchanges: newExchangeRepo(sessions),
	}
}

const saveExchangesCypher = `MATCH (v:Video {id: $video_id})
UNWIND $rows AS row
MERGE (e:Exchange {id: row.id})
SET e += row.props
MERGE (v)-[:CONTAINS]->(e)
WITH e, row
OPTIONAL MATCH (e)-[old:TAGGED]->(:Tag)
DELETE old
WITH DISTINCT e, row
UNWIND row.tags AS tag
MERGE (t:Tag {key: tag.key, value: tag.value})
MERGE (e)-[:TAGGED]->(t)`

// SaveTagged records every successfully tagged block of a video. Blocks
// whose tagging failed are skipped. Existing tag edges of a re-saved
// exchange are replaced. It returns the number of exchanges written.
func (g *GraphStore) SaveTagged(ctx context.Context, url string, chunks []domain.TaggedChunk) (int, error) {
	video := NewVideo(url)
	if _, err := g.videos.Upsert(ctx, video); err != nil {
		return 0, fmt.Errorf("graph: save video: %w", err)
	}

	rows := exchangeRows(video.ID, chunks)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := g.exchanges.Exec(ctx, saveExchangesCypher, map[string]any{
		"video_id": video.ID,
		"rows":     rows,
	}); err != nil {
		return 0, fmt.Errorf("graph: save %d exchanges: %w", len(rows), err)
	}
	return len(rows), nil
}

// Exchange returns one exchange by record id.
func (g *GraphStore) Exchange(ctx context.Context, id string) (Exchange, error) {
	return g.exchanges.Get(ctx, id)
}

// Videos lists video nodes.
func (g *GraphStore) Videos(ctx context.Context, opts repo.ListOpts) ([]Video, error) {
	return g.videos.List(ctx, opts)
}

// ExchangesWithTag returns exchanges carrying key=value.
func (g *GraphStore) ExchangesWithTag(ctx context.Context, tag Tag, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 25
	}
	cypher := `MATCH (n:Exchange)-[:TAGGED]->(:Tag {key: $key, value: $value})
RETURN n ORDER BY n.id LIMIT $limit`

	var out []Exchange
	err := g.exchanges.Query(ctx, cypher, map[string]any{
		"key":   tag.Key,
		"value": tag.Value,
		"limit": limit,
	}, func(rec *neo4j.Record) error {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
		if err != nil {
			return err
		}
		out = append(out, exchangeFromProps(node.Props))
		return nil
	})
	return out, err
}

// TagValues returns the most frequent values of a tag key.
func (g *GraphStore) TagValues(ctx context.Context, key string, limit int) ([]TagCount, error) {
	if limit <= 0 {
		limit = 10
	}
	cypher := `MATCH (:Exchange)-[:TAGGED]->(t:Tag {key: $key})
RETURN t.value AS value, count(*) AS exchanges
ORDER BY exchanges DESC, value LIMIT $limit`

	var out []TagCount
	err := g.exchanges.Query(ctx, cypher, map[string]any{"key": key, "limit": limit}, func(rec *neo4j.Record) error {
		value, _, err := neo4j.GetRecordValue[string](rec, "value")
		if err != nil {
			return err
		}
		n, _, err := neo4j.GetRecordValue[int64](rec, "exchanges")
		if err != nil {
			return err
		}
		out = append(out, TagCount{Value: value, Exchanges: n})
		return nil
	})
	return out, err
}

// DeleteVideo removes a video and its exchanges. Tag nodes stay.
func (g *GraphStore) DeleteVideo(ctx context.Context, url string) error {
	cypher := `MATCH (v:Video {id: $id})
OPTIONAL MATCH (v)-[:CONTAINS]->(e:Exchange)
DETACH DELETE e, v`
	if err := g.videos.Exec(ctx, cypher, map[string]any{"id": VideoID(url)}); err != nil {
		return fmt.Errorf("graph: delete video: %w", err)
	}
	return nil
}

// exchangeRows flattens tagged chunks into UNWIND parameters.
func exchangeRows(videoID string, chunks []domain.TaggedChunk) []map[string]any {
	var rows []map[string]any
	for ci, chunk := range chunks {
		num := chunk.Number
		if num == 0 {
			num = ci + 1
		}
		for bi, b := range chunk.Blocks {
			tags := TagsOf(b.TaggingResult)
			if b.TaggingError != "" || tags == nil {
				continue
			}
			blockID := b.Identifier(bi)
			ex := Exchange{
				ID:          domain.RecordID(num, blockID),
				VideoID:     videoID,
				ChunkNumber: num,
				BlockID:     blockID,
				Summary:     b.Summary,
				StartLine:   b.StartLine,
				EndLine:     b.EndLine,
			}
			tagRows := make([]map[string]any, len(tags))
			for i, t := range tags {
				tagRows[i] = map[string]any{"key": t.Key, "value": t.Value}
			}
			rows = append(rows, map[string]any{
				"id":    ex.ID,
				"props": exchangeToMap(ex),
				"tags":  tagRows,
			})
		}
	}
	return rows
}

// TagsOf expands a tagging result into tags, sorted by key then value.
// List values yield one tag per scalar element; nested objects, nulls and
// empty strings yield nothing. A result with no tag object returns nil.
func TagsOf(result any) []Tag {
	obj := domain.TagObject(result)
	if obj == nil {
		return nil
	}
	tags := []Tag{}
	for k, v := range obj {
		switch x := v.(type) {
		case []any:
			for _, item := range x {
				if s, ok := scalarString(item); ok {
					tags = append(tags, Tag{Key: k, Value: s})
				}
			}
		default:
			if s, ok := scalarString(x); ok {
				tags = append(tags, Tag{Key: k, Value: s})
			}
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Key != tags[j].Key {
			return tags[i].Key < tags[j].Key
		}
		return tags[i].Value < tags[j].Value
	})
	return tags
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}
