package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/rizz-engine/pkg/repo"
)

func newVideoRepo(sessions repo.SessionFactory) *repo.Neo4jRepo[Video, string] {
	return repo.NewNeo4jRepo[Video, string](
		nil,
		"Video",
		videoToMap,
		videoFromRecord,
		repo.WithSessions[Video, string](sessions),
	)
}

func newExchangeRepo(sessions repo.SessionFactory) *repo.Neo4jRepo[Exchange, string] {
	return repo.NewNeo4jRepo[Exchange, string](
		nil,
		"Exchange",
		exchangeToMap,
		exchangeFromRecord,
		repo.WithSessions[Exchange, string](sessions),
	)
}

func videoToMap(v Video) map[string]any {
	return map[string]any{
		"id":       v.ID,
		"url":      v.URL,
		"platform": v.Platform,
	}
}

func videoFromRecord(rec *neo4j.Record) (Video, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Video{}, err
	}
	return Video{
		ID:       strProp(node.Props, "id"),
		URL:      strProp(node.Props, "url"),
		Platform: strProp(node.Props, "platform"),
	}, nil
}

func exchangeToMap(e Exchange) map[string]any {
	return map[string]any{
		"id":           e.ID,
		"video_id":     e.VideoID,
		"chunk_number": e.ChunkNumber,
		"block_id":     e.BlockID,
		"summary":      e.Summary,
		"start_line":   e.StartLine,
		"end_line":     e.EndLine,
	}
}

func exchangeFromRecord(rec *neo4j.Record) (Exchange, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Exchange{}, err
	}
	return exchangeFromProps(node.Props), nil
}

func exchangeFromProps(props map[string]any) Exchange {
	return Exchange{
		ID:          strProp(props, "id"),
		VideoID:     strProp(props, "video_id"),
		ChunkNumber: intProp(props, "chunk_number"),
		BlockID:     strProp(props, "block_id"),
		Summary:     strProp(props, "summary"),
		StartLine:   intProp(props, "start_line"),
		EndLine:     intProp(props, "end_line"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// intProp reads an integer property. The driver returns int64; values
// written by tests may be plain ints.
func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
