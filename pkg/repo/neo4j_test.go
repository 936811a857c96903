package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// --- Mocks ---

type mockResult struct {
	records []*neo4j.Record
	idx     int
}

func (m *mockResult) Next(ctx context.Context) bool {
	if m.idx < len(m.records) {
		m.idx++
		return true
	}
	return false
}

func (m *mockResult) Record() *neo4j.Record {
	return m.records[m.idx-1]
}

type mockRunner struct {
	result  *mockResult
	err     error
	cyphers []string
	params  []map[string]any
}

func (m *mockRunner) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	m.cyphers = append(m.cyphers, cypher)
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRunner) Close(ctx context.Context) error { return nil }

// helper types

type entity struct {
	ID   string
	Name string
}

func makeRecord(id, name string) *neo4j.Record {
	return &neo4j.Record{
		Values: []any{map[string]any{"id": id, "name": name}},
		Keys:   []string{"n"},
	}
}

func newTestRepo(r *mockRunner) *Neo4jRepo[entity, string] {
	repo := NewNeo4jRepo[entity, string](
		nil, "Entity",
		func(e entity) map[string]any { return map[string]any{"id": e.ID, "name": e.Name} },
		func(rec *neo4j.Record) (entity, error) {
			if len(rec.Values) == 0 {
				return entity{}, errors.New("empty")
			}
			m, ok := rec.Values[0].(map[string]any)
			if !ok {
				return entity{}, errors.New("bad type")
			}
			return entity{ID: m["id"].(string), Name: m["name"].(string)}, nil
		},
		WithSessions[entity, string](func(ctx context.Context) Runner { return r }),
	)
	return repo
}

// --- Tests ---

func TestGet_Success(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "Alice")}}}
	repo := newTestRepo(r)

	e, err := repo.Get(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "1" || e.Name != "Alice" {
		t.Fatalf("got %+v", e)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestRepo(r)
	_, err := repo.Get(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_RunError(t *testing.T) {
	r := &mockRunner{err: errors.New("db down")}
	repo := newTestRepo(r)
	_, err := repo.Get(context.Background(), "x")
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected db down, got %v", err)
	}
}

func TestList_Success(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "A"), makeRecord("2", "B")}}}
	repo := newTestRepo(r)

	items, err := repo.List(context.Background(), ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
}

func TestList_DefaultLimit(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestRepo(r)
	_, err := repo.List(context.Background(), ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
}

func TestList_RunError(t *testing.T) {
	r := &mockRunner{err: errors.New("fail")}
	repo := newTestRepo(r)
	_, err := repo.List(context.Background(), ListOpts{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestList_FromRecordError(t *testing.T) {
	bad := &neo4j.Record{Values: []any{"not a map"}, Keys: []string{"n"}}
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{bad}}}
	repo := newTestRepo(r)
	_, err := repo.List(context.Background(), ListOpts{Limit: 10})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_Success(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("3", "C")}}}
	repo := newTestRepo(r)
	e, err := repo.Upsert(context.Background(), entity{ID: "3", Name: "C"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != "C" {
		t.Fatalf("got %+v", e)
	}
}

func TestUpsert_RunError(t *testing.T) {
	r := &mockRunner{err: errors.New("fail")}
	repo := newTestRepo(r)
	_, err := repo.Upsert(context.Background(), entity{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_NoResult(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestRepo(r)
	_, err := repo.Upsert(context.Background(), entity{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete_Success(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestRepo(r)
	err := repo.Delete(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
}

func TestDelete_RunError(t *testing.T) {
	r := &mockRunner{err: errors.New("fail")}
	repo := newTestRepo(r)
	err := repo.Delete(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCypherGeneration(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "A")}}}
	repo := NewNeo4jRepo[entity, string](
		nil, "Vehicle",
		func(e entity) map[string]any { return map[string]any{"vin": e.ID, "name": e.Name} },
		func(rec *neo4j.Record) (entity, error) {
			m := rec.Values[0].(map[string]any)
			return entity{ID: m["id"].(string), Name: m["name"].(string)}, nil
		},
		WithIDKey[entity, string]("vin"),
		WithSessions[entity, string](func(ctx context.Context) Runner {
			// Reset result index for each call
			r.result = &mockResult{records: []*neo4j.Record{makeRecord("1", "A")}}
			return r
		}),
	)

	ctx := context.Background()
	repo.Get(ctx, "ABC")
	repo.List(ctx, ListOpts{Limit: 50})
	repo.List(ctx, ListOpts{Limit: 5, Filter: map[string]any{"year": 2024, "make": "x", "bad key": 1}})
	repo.Upsert(ctx, entity{ID: "ABC", Name: "A"})
	repo.Delete(ctx, "ABC")

	expected := []string{
		"MATCH (n:Vehicle {vin: $id}) RETURN n",
		"MATCH (n:Vehicle) RETURN n SKIP $offset LIMIT $limit",
		"MATCH (n:Vehicle) WHERE n.make = $f_make AND n.year = $f_year RETURN n SKIP $offset LIMIT $limit",
		"MERGE (n:Vehicle {vin: $id}) SET n += $props RETURN n",
		"MATCH (n:Vehicle {vin: $id}) DETACH DELETE n",
	}

	if len(r.cyphers) != len(expected) {
		t.Fatalf("got %d cyphers, want %d", len(r.cyphers), len(expected))
	}
	for i, want := range expected {
		if r.cyphers[i] != want {
			t.Errorf("[%d] got %q, want %q", i, r.cyphers[i], want)
		}
	}
}

func TestNoDriverConfigured(t *testing.T) {
	repo := NewNeo4jRepo[entity, string](nil, "X", nil, nil)
	if _, err := repo.Get(context.Background(), "1"); err == nil {
		t.Fatal("expected error without a driver")
	}
	if err := repo.Exec(context.Background(), "RETURN 1", nil); err == nil {
		t.Fatal("expected error without a driver")
	}
}

func TestGet_NotFoundWrapsSentinel(t *testing.T) {
	repo := newTestRepo(&mockRunner{result: &mockResult{}})
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFilterParams(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestRepo(r)
	if _, err := repo.List(context.Background(), ListOpts{Filter: map[string]any{"setting": "bar"}}); err != nil {
		t.Fatal(err)
	}
	if got := r.params[0]["f_setting"]; got != "bar" {
		t.Fatalf("f_setting = %v", got)
	}
	if got := r.params[0]["limit"]; got != 100 {
		t.Fatalf("limit = %v, want default 100", got)
	}
}

func TestQueryVisitsEveryRecord(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "A"), makeRecord("2", "B")}}}
	repo := newTestRepo(r)

	var seen int
	err := repo.Query(context.Background(), "MATCH (n) RETURN n", nil, func(*neo4j.Record) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 2 {
		t.Fatalf("visited %d records", seen)
	}
}

func TestQueryStopsOnCallbackError(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{makeRecord("1", "A"), makeRecord("2", "B")}}}
	repo := newTestRepo(r)

	stop := errors.New("stop")
	var seen int
	err := repo.Query(context.Background(), "MATCH (n) RETURN n", nil, func(*neo4j.Record) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}

func TestExecWrapsError(t *testing.T) {
	repo := newTestRepo(&mockRunner{err: errors.New("db down")})
	err := repo.Exec(context.Background(), "RETURN 1", nil)
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("got %v", err)
	}
}

func TestIsIdent(t *testing.T) {
	for s, want := range map[string]bool{"setting": true, "roast_level": true, "a1": true, "1a": false, "": false, "a-b": false, "n.x": false} {
		if got := isIdent(s); got != want {
			t.Errorf("isIdent(%q) = %v, want %v", s, got, want)
		}
	}
}
