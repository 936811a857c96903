//go:build integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/app"
	"github.com/WessleyAI/rizz-engine/pkg/config"
)

// Runs against live Qdrant and embedding backends configured through the
// environment (QDRANT_URL, EMBEDDING_PROVIDER, ...).
func TestAPI_RetrieveLive(t *testing.T) {
	if os.Getenv("QDRANT_URL") == "" {
		t.Skip("QDRANT_URL not set")
	}
	cfg, err := config.Load(os.Getenv("RIZZ_CONFIG"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := app.New(cfg, quietLogger())
	defer a.Close()
	r, err := a.Retriever(ctx)
	if err != nil {
		t.Fatalf("retriever: %v", err)
	}
	srv := httptest.NewServer(newHandler(r, nil, a.Metrics, "*", quietLogger()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/retrieve", "application/json",
		strings.NewReader(`{"input":"how do I open","scenario":{"setting":"bar"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out RetrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Matches == nil {
		t.Fatal("matches should be a list")
	}
}
