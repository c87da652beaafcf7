package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %q", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestCouponsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_coupons.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS coupons",
		"code TEXT NOT NULL UNIQUE",
		"CHECK (usage_limit >= 0)",
		"CHECK (used_count >= 0)",
		"CHECK (end_at > start_at)",
		"DROP TABLE IF EXISTS coupons",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS cart_records",
		"session_id TEXT NOT NULL UNIQUE",
		"FOREIGN KEY (cart_id) REFERENCES cart_records(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
		"DROP TABLE IF EXISTS cart_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPricingMigrationUniquePair(t *testing.T) {
	content := readMigration(t, "*_create_pricing_records.sql")

	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS idx_pricing_product_variant") {
		t.Error("missing unique product/variant index")
	}
	if !strings.Contains(content, "COALESCE(variant_id") {
		t.Error("unique index must coalesce NULL variant rows")
	}
}
