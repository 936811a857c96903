package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pointsClient is the subset of pb.PointsClient the store uses.
type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsClient is the subset of pb.CollectionsClient the store uses.
type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a store on existing clients. Close is a no-op.
func NewWithClients(points pointsClient, collections collectionsClient, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Collection returns the collection name.
func (v *VectorStore) Collection() string { return v.collection }

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection (cosine distance) if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores records. The payload is the record metadata plus the
// document text and the record ID.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]*pb.Value, len(r.Metadata)+2)
		for k, val := range r.Metadata {
			if pv := toValue(val); pv != nil {
				payload[k] = pv
			}
		}
		payload[PayloadText] = toValue(r.Document)
		payload[PayloadRecordID] = toValue(r.ID)

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeleteWhere removes every point whose payload key equals value. Used to
// clear a transcript before re-indexing it.
func (v *VectorStore) DeleteWhere(ctx context.Context, key string, value any) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch(key, value)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete where %s=%v: %w", key, value, err)
	}
	return nil
}

// Search performs k-NN similarity search with an optional filter.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if !filter.Empty() {
		req.Filter = toFilter(filter)
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{
			PointID:  r.GetId().GetUuid(),
			Score:    r.GetScore(),
			Metadata: make(map[string]any),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case PayloadText:
				sr.Document = val.GetStringValue()
			case PayloadRecordID:
				sr.ID = val.GetStringValue()
			default:
				sr.Metadata[k] = fromValue(val)
			}
		}
		if sr.ID == "" {
			sr.ID = sr.PointID
		}
		results[i] = sr
	}
	return results, nil
}

func toFilter(f *Filter) *pb.Filter {
	out := &pb.Filter{}
	for _, c := range f.Must {
		out.Must = append(out.Must, fieldMatch(c.Key, c.Value))
	}
	for _, c := range f.Should {
		out.Should = append(out.Should, fieldMatch(c.Key, c.Value))
	}
	return out
}

func fieldMatch(key string, value any) *pb.Condition {
	m := &pb.Match{}
	switch tv := value.(type) {
	case int:
		m.MatchValue = &pb.Match_Integer{Integer: int64(tv)}
	case int64:
		m.MatchValue = &pb.Match_Integer{Integer: tv}
	case bool:
		m.MatchValue = &pb.Match_Boolean{Boolean: tv}
	case string:
		m.MatchValue = &pb.Match_Keyword{Keyword: tv}
	default:
		m.MatchValue = &pb.Match_Keyword{Keyword: fmt.Sprint(tv)}
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Match: m},
		},
	}
}

// toValue converts a metadata value to a payload value. Nil yields nil and
// the key is dropped. Integral numbers become integers so they can be
// matched exactly; composite values are stored as JSON strings.
func toValue(val any) *pb.Value {
	switch tv := val.(type) {
	case nil:
		return nil
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		if tv == math.Trunc(tv) && math.Abs(tv) < 1<<53 {
			return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		}
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case json.Number:
		if n, err := tv.Int64(); err == nil {
			return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
		}
		if f, err := tv.Float64(); err == nil {
			return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
		}
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv.String()}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		b, err := json.Marshal(tv)
		if err != nil {
			return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: string(b)}}
	}
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}
