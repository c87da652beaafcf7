package tax

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/pkg/db/models"
	"github.com/shoplane/storefront-backend/pkg/enums"
)

func setupTaxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS tax_rules (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  value NUMERIC NOT NULL,
  country TEXT,
  state TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM tax_rules")
	})
	return db
}

func newRule(t *testing.T, db *gorm.DB, name string, value int64, country, state *string, active bool) *models.TaxRule {
	t.Helper()

	rule := &models.TaxRule{
		ID:       uuid.New(),
		Name:     name,
		Type:     enums.TaxRuleTypePercentage,
		Value:    decimal.NewFromInt(value),
		Country:  country,
		State:    state,
		IsActive: active,
	}
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func strPtr(s string) *string { return &s }

func TestCandidatesForRegion(t *testing.T) {
	db := setupTaxTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	exact := newRule(t, db, "Maharashtra GST", 18, strPtr("India"), strPtr("Maharashtra"), true)
	countryWide := newRule(t, db, "India GST", 5, strPtr("India"), nil, true)
	global := newRule(t, db, "Default", 2, nil, nil, true)
	newRule(t, db, "Karnataka GST", 12, strPtr("India"), strPtr("Karnataka"), true)
	newRule(t, db, "Disabled", 99, strPtr("India"), strPtr("Maharashtra"), false)

	rows, err := repo.CandidatesForRegion(ctx, strPtr("India"), strPtr("Maharashtra"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	ids := map[uuid.UUID]bool{}
	for _, r := range rows {
		ids[r.ID] = true
	}
	require.True(t, ids[exact.ID])
	require.True(t, ids[countryWide.ID])
	require.True(t, ids[global.ID])

	rows, err = repo.CandidatesForRegion(ctx, strPtr("India"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.CandidatesForRegion(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, global.ID, rows[0].ID)
}

func TestCandidatesForRegionUnknownCountry(t *testing.T) {
	db := setupTaxTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	newRule(t, db, "India GST", 5, strPtr("India"), nil, true)

	rows, err := repo.CandidatesForRegion(ctx, strPtr("Brazil"), strPtr("Bahia"))
	require.NoError(t, err)
	require.Empty(t, rows)
}
