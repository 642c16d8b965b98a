package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rt0111/onayformukontrol/internal/database"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container with an initialized schema
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("onaykontrol_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewDB(ctx, connStr, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Initialize(ctx))
	return db
}

func TestNewDBRejectsBadURL(t *testing.T) {
	_, err := database.NewDB(context.Background(), "://not a url", 1)
	assert.Error(t, err)
}

func TestRulesetStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))
	// Schema creation can run again on an existing database
	require.NoError(t, db.Initialize(ctx))

	_, err := db.LoadRuleset(ctx)
	assert.True(t, errors.Is(err, database.ErrNoRuleset))

	want, err := rules.Default()
	require.NoError(t, err)
	require.NoError(t, db.SeedRuleset(ctx, want))

	got, err := db.LoadRuleset(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.PhraseCount(), got.PhraseCount())
	assert.Equal(t, want.Section.Headings, got.Section.Headings)
	assert.Equal(t, want.Section.StopHeadings, got.Section.StopHeadings)
	assert.ElementsMatch(t, want.NegationCues, got.NegationCues)
	assertSameThresholds(t, want.Thresholds, got.Thresholds)

	assert.Equal(t, want.Approval.ConsultingReason, got.Approval.ConsultingReason)
	assert.Equal(t, want.Approval.NonStandardMonths, got.Approval.NonStandardMonths)
	assert.True(t, want.Approval.NonStandardValue.Equal(got.Approval.NonStandardValue))

	for _, cat := range want.Categories {
		stored, ok := got.Category(cat.Category)
		require.True(t, ok, "category %s", cat.Category)
		assert.Equal(t, cat.Reason, stored.Reason)
		for _, level := range []models.Level{models.LevelLow, models.LevelMedium, models.LevelHigh} {
			assert.ElementsMatch(t, cat.Phrases.ByLevel(level), stored.Phrases.ByLevel(level), "%s %s", cat.Category, level)
		}
	}

	// The stored ruleset drives the same pipeline as the embedded one
	resolver, err := got.Resolver()
	require.NoError(t, err)
	res, err := resolver.Resolve(decimal.RequireFromString("25000"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "Müdür / Bölge Müdürü", res.Authority)
}

func TestSeedRulesetReplacesPrevious(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := rules.Default()
	require.NoError(t, err)
	require.NoError(t, db.SeedRuleset(ctx, first))

	second, err := rules.Default()
	require.NoError(t, err)
	second.Categories[0].Phrases.Add(models.LevelHigh, "gizli ortaklık")
	require.NoError(t, db.SeedRuleset(ctx, second))

	got, err := db.LoadRuleset(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.PhraseCount()+1, got.PhraseCount())

	stored, ok := got.Category(second.Categories[0].Category)
	require.True(t, ok)
	assert.Contains(t, stored.Phrases.ByLevel(models.LevelHigh), "gizli ortaklık")
}

func TestSeedRulesetRejectsInvalid(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupTestDB(t)
	ctx := context.Background()

	rs, err := rules.Default()
	require.NoError(t, err)
	rs.Thresholds = nil

	assert.Error(t, db.SeedRuleset(ctx, rs))

	_, err = db.LoadRuleset(ctx)
	assert.True(t, errors.Is(err, database.ErrNoRuleset))
}

func assertSameThresholds(t *testing.T, want, got []models.ApprovalThresholdRule) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Lower.Equal(got[i].Lower), "threshold %d lower", i)
		assert.Equal(t, want[i].Authority, got[i].Authority)
		if want[i].Upper == nil {
			assert.Nil(t, got[i].Upper)
			continue
		}
		require.NotNil(t, got[i].Upper)
		assert.True(t, want[i].Upper.Equal(*got[i].Upper), "threshold %d upper", i)
	}
}
