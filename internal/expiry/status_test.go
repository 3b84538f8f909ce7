package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return now.AddDate(0, 0, n)
}

func TestNearestActiveExpiry(t *testing.T) {
	t.Run("returns nil without active batches", func(t *testing.T) {
		assert.Nil(t, NearestActiveExpiry(nil))
		assert.Nil(t, NearestActiveExpiry([]Batch{
			{ExpiresAt: days(10), Active: false},
			{ExpiresAt: days(20), Active: false},
		}))
	})

	t.Run("picks the earliest active expiry", func(t *testing.T) {
		got := NearestActiveExpiry([]Batch{
			{ExpiresAt: days(200), Active: true},
			{ExpiresAt: days(10), Active: true},
			{ExpiresAt: days(5), Active: false},
		})
		require.NotNil(t, got)
		assert.Equal(t, days(10), *got)
	})

	t.Run("is lower bound for every active batch", func(t *testing.T) {
		batches := []Batch{
			{ExpiresAt: days(45), Active: true},
			{ExpiresAt: days(12), Active: true},
			{ExpiresAt: days(90), Active: true},
		}
		got := NearestActiveExpiry(batches)
		require.NotNil(t, got)
		for _, b := range batches {
			assert.False(t, b.ExpiresAt.Before(*got))
		}
	})
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		name  string
		date  *time.Time
		label string
		tier  Tier
	}{
		{"no batches", nil, "Sem Lotes", TierNeutral},
		{"expired yesterday", ptr(days(-1)), "Vencido", TierCritical},
		{"expires today", ptr(now), "Crítico", TierHigh},
		{"day 30 boundary", ptr(days(30)), "Crítico", TierHigh},
		{"day 31", ptr(days(31)), "Atenção", TierMedium},
		{"day 90 boundary", ptr(days(90)), "Atenção", TierMedium},
		{"day 91", ptr(days(91)), "Seguro", TierSafe},
		{"far future", ptr(days(400)), "Seguro", TierSafe},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.date, now)
			assert.Equal(t, tc.label, got.Label)
			assert.Equal(t, tc.tier, got.Tier)
		})
	}
}

func TestClassifyMonotonicTiers(t *testing.T) {
	// Tier urgency must never decrease as the expiry date approaches.
	order := map[Tier]int{TierSafe: 0, TierMedium: 1, TierHigh: 2, TierCritical: 3}
	prev := -1
	for d := 120; d >= -5; d-- {
		date := days(d)
		tier := Classify(&date, now).Tier
		require.GreaterOrEqual(t, order[tier], prev, "tier regressed at day %d", d)
		prev = order[tier]
	}
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		declared, batched int
		percent           float64
		shortfall         int
	}{
		{100, 40, 40, 60},
		{0, 0, 100, 0},
		{50, 60, 100, 0},
		{0, 10, 0, 0},
		{10, 0, 0, 10},
	}
	for _, tc := range cases {
		got := Reconcile(tc.declared, tc.batched)
		assert.InDelta(t, tc.percent, got.Percent, 0.001, "declared=%d batched=%d", tc.declared, tc.batched)
		assert.Equal(t, tc.shortfall, got.Shortfall, "declared=%d batched=%d", tc.declared, tc.batched)
	}
}

func TestSortDiscrepancies(t *testing.T) {
	rows := []Discrepancy{
		{CodigoLM: 1, Shortfall: 50, HasExpiryRisk: false},
		{CodigoLM: 2, Shortfall: 10, HasExpiryRisk: true},
		{CodigoLM: 3, Shortfall: 30, HasExpiryRisk: true},
		{CodigoLM: 4, Shortfall: 50, HasExpiryRisk: false},
	}
	SortDiscrepancies(rows)

	require.Len(t, rows, 4)
	// Risk first, shortfall descending within each group.
	assert.Equal(t, int64(3), rows[0].CodigoLM)
	assert.Equal(t, int64(2), rows[1].CodigoLM)
	// Stable: equal keys preserve input order.
	assert.Equal(t, int64(1), rows[2].CodigoLM)
	assert.Equal(t, int64(4), rows[3].CodigoLM)
}

func TestHasExpiryRisk(t *testing.T) {
	assert.True(t, HasExpiryRisk([]Batch{
		{ExpiresAt: days(10), Active: true},
		{ExpiresAt: days(200), Active: true},
	}, now))
	assert.False(t, HasExpiryRisk([]Batch{
		{ExpiresAt: days(10), Active: false},
		{ExpiresAt: days(200), Active: true},
	}, now))
	assert.False(t, HasExpiryRisk(nil, now))
}

func TestMonthSpanAsymmetry(t *testing.T) {
	fab := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	val := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	// 90 days / 30.44 ≈ 2.95 → floor 2. The averaged division rounds down.
	span := MonthSpan(fab, val)
	assert.Equal(t, 2, span)

	// Feeding the span back uses calendar arithmetic and lands a month short
	// of the original expiry. The asymmetry is intentional.
	back := ExpiryFromSpan(fab, span)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), back)
	assert.True(t, back.Before(val))
}

func TestMonthSpanClampsNegative(t *testing.T) {
	fab := days(0)
	assert.Equal(t, 0, MonthSpan(fab, fab.AddDate(0, 0, -40)))
}

func TestValidateDates(t *testing.T) {
	fab := days(0)
	assert.True(t, ValidateDates(fab, fab.AddDate(0, 0, 1)))
	assert.False(t, ValidateDates(fab, fab))
	assert.False(t, ValidateDates(fab, fab.AddDate(0, 0, -1)))
}

func TestScenarioTwoActiveBatches(t *testing.T) {
	batches := []Batch{
		{ExpiresAt: days(200), Active: true},
		{ExpiresAt: days(10), Active: true},
	}
	nearest := NearestActiveExpiry(batches)
	require.NotNil(t, nearest)
	assert.Equal(t, days(10), *nearest)

	status := Classify(nearest, now)
	assert.Equal(t, "Crítico", status.Label)
	assert.Equal(t, TierHigh, status.Tier)
}

func ptr(t time.Time) *time.Time { return &t }
