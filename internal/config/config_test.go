package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "SEARCH_TIMEOUT", "API_RATE_LIMIT_RPS", "QDRANT_CHUNK_COLLECTION"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SearchTimeout != 4*time.Second {
		t.Errorf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Errorf("APIRateLimitRPS = %v", cfg.APIRateLimitRPS)
	}
	if cfg.QdrantChunkCollection != "knowledge_chunks" {
		t.Errorf("QdrantChunkCollection = %q", cfg.QdrantChunkCollection)
	}
	if cfg.NATSRefreshSubject != "kb.refreshed" {
		t.Errorf("NATSRefreshSubject = %q", cfg.NATSRefreshSubject)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("SEARCH_TIMEOUT", "2s")
	t.Setenv("API_MAX_IN_FLIGHT", "16")
	t.Setenv("EMBED_CACHE_MAX_BYTES", "1048576")

	cfg := Load()
	if cfg.APIPort != "9090" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SearchTimeout != 2*time.Second {
		t.Errorf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if cfg.APIMaxInFlight != 16 {
		t.Errorf("APIMaxInFlight = %d", cfg.APIMaxInFlight)
	}
	if cfg.EmbedCacheMaxBytes != 1<<20 {
		t.Errorf("EmbedCacheMaxBytes = %d", cfg.EmbedCacheMaxBytes)
	}
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT", "soon")
	t.Setenv("API_RATE_LIMIT_BURST", "lots")

	cfg := Load()
	if cfg.SearchTimeout != 4*time.Second {
		t.Errorf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if cfg.APIRateLimitBurst != 40 {
		t.Errorf("APIRateLimitBurst = %d", cfg.APIRateLimitBurst)
	}
}
