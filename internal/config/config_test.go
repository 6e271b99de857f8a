package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "")
	t.Setenv("MONGO_DB", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LowStockThreshold != 5 {
		t.Fatalf("expected default low stock threshold 5, got %d", cfg.LowStockThreshold)
	}
	if cfg.DashboardCacheTTLSeconds != 15 {
		t.Fatalf("expected default cache ttl 15, got %d", cfg.DashboardCacheTTLSeconds)
	}
	if cfg.MongoDB != "dukkan" {
		t.Fatalf("expected default mongo db dukkan, got %q", cfg.MongoDB)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsBadNumericValues(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "-3")
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "notanumber")

	cfg := Load()
	if cfg.LowStockThreshold != 5 {
		t.Fatalf("negative threshold should fall back to 5, got %d", cfg.LowStockThreshold)
	}
	if cfg.DashboardCacheTTLSeconds != 15 {
		t.Fatalf("unparsable ttl should fall back to 15, got %d", cfg.DashboardCacheTTLSeconds)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.LowStockThreshold != 12 {
		t.Fatalf("expected threshold 12, got %d", cfg.LowStockThreshold)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected mongo uri %q", cfg.MongoURI)
	}
}
