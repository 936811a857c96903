//go:build integration

package graph

import (
	"context"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func testDriver(t *testing.T) neo4j.DriverWithContext {
	t.Helper()
	url := envOr("NEO4J_URL", "neo4j://localhost:7687")
	driver, err := neo4j.NewDriverWithContext(url, neo4j.NoAuth())
	if err != nil {
		t.Fatalf("neo4j connect: %v", err)
	}
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		t.Fatalf("neo4j verify: %v", err)
	}
	t.Cleanup(func() {
		sess := driver.NewSession(ctx, neo4j.SessionConfig{})
		sess.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		sess.Close(ctx)
		driver.Close(ctx)
	})
	return driver
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestNeo4j_SaveTaggedAndQuery(t *testing.T) {
	store := New(testDriver(t))
	ctx := context.Background()

	n, err := store.SaveTagged(ctx, testURL, taggedFixture())
	if err != nil {
		t.Fatalf("SaveTagged: %v", err)
	}
	if n != 2 {
		t.Fatalf("saved %d", n)
	}

	ex, err := store.Exchange(ctx, "chunk_1_block_1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if ex.Summary != "opener" {
		t.Fatalf("summary = %q", ex.Summary)
	}

	hits, err := store.ExchangesWithTag(ctx, Tag{Key: "techniques", Value: "tease"}, 10)
	if err != nil {
		t.Fatalf("ExchangesWithTag: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "chunk_1_block_1" {
		t.Fatalf("hits = %+v", hits)
	}

	counts, err := store.TagValues(ctx, "setting", 5)
	if err != nil {
		t.Fatalf("TagValues: %v", err)
	}
	if len(counts) != 1 || counts[0].Value != "bar" {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestNeo4j_ResaveReplacesTags(t *testing.T) {
	store := New(testDriver(t))
	ctx := context.Background()

	chunks := taggedFixture()
	if _, err := store.SaveTagged(ctx, testURL, chunks); err != nil {
		t.Fatal(err)
	}
	chunks[0].Blocks[0].TaggingResult = map[string]any{"setting": "park"}
	if _, err := store.SaveTagged(ctx, testURL, chunks); err != nil {
		t.Fatal(err)
	}

	hits, err := store.ExchangesWithTag(ctx, Tag{Key: "setting", Value: "bar"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("stale tag edge survived: %+v", hits)
	}
}

func TestNeo4j_DeleteVideo(t *testing.T) {
	store := New(testDriver(t))
	ctx := context.Background()

	if _, err := store.SaveTagged(ctx, testURL, taggedFixture()); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteVideo(ctx, testURL); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Exchange(ctx, "chunk_1_block_1"); err == nil {
		t.Fatal("exchange should be gone")
	}
}
