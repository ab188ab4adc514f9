package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"affiliate/errors"
	"affiliate/models"
	"affiliate/repository"
	"affiliate/services/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) SendMessage(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *captureNotifier) captured() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// setupAttribution registers a referrer, tracks one referee, and returns the
// wired services plus both wallets.
func setupAttribution(t *testing.T) (*AttributionService, *repository.MemoryStore, *captureNotifier, string, string) {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.NewDefaultLogger(logger.ErrorLevel)
	notifier := &captureNotifier{}

	affiliates := NewAffiliateService(AffiliateServiceOptions{Store: store, Logger: log})
	attribution := NewAttributionService(AttributionServiceOptions{
		Store:    store,
		Notifier: notifier,
		Logger:   log,
	})

	ctx := context.Background()
	referrer, err := affiliates.RegisterAffiliate(ctx, testWallet("a"))
	require.NoError(t, err)
	_, err = affiliates.TrackReferral(ctx, referrer.ReferralCode, testWallet("b"))
	require.NoError(t, err)

	return attribution, store, notifier, referrer.WalletAddress, testWallet("b")
}

func TestAttributeVolumeAtBronze(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 1000))

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.InDelta(t, 1000, referrer.TotalVolume, 1e-6)
	assert.InDelta(t, 100, referrer.PendingPayout, 1e-6)
	assert.Equal(t, models.TierBronze, referrer.Tier)

	referral, err := store.GetReferralByReferee(ctx, trader)
	require.NoError(t, err)
	assert.InDelta(t, 1000, referral.LifetimeVolume, 1e-6)
	assert.InDelta(t, 1000, referral.Last30DaysVolume, 1e-6)
	assert.WithinDuration(t, time.Now(), referral.LastActiveAt, time.Minute)

	daily, err := store.GetDailyVolume(ctx, referrer.ID, models.RollupDate(time.Now()))
	require.NoError(t, err)
	assert.InDelta(t, 1000, daily.VolumeUsd, 1e-6)
	assert.InDelta(t, 100, daily.CommissionUsd, 1e-6)
	assert.Equal(t, 1, daily.TradeCount)
}

func TestAttributeVolumeUnreferredTraderIsNoOp(t *testing.T) {
	attribution, store, _, referrerWallet, _ := setupAttribution(t)
	ctx := context.Background()

	require.NoError(t, attribution.AttributeVolume(ctx, testWallet("9"), 1000))

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.Zero(t, referrer.TotalVolume)
	assert.Zero(t, referrer.PendingPayout)
}

func TestAttributeVolumeRejectsNegative(t *testing.T) {
	attribution, _, _, _, trader := setupAttribution(t)

	err := attribution.AttributeVolume(context.Background(), trader, -5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidAmount))
}

func TestAttributeVolumeZeroStillCountsTrade(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 0))

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.Zero(t, referrer.TotalVolume)
	assert.Zero(t, referrer.PendingPayout)

	daily, err := store.GetDailyVolume(ctx, referrer.ID, models.RollupDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, daily.TradeCount)
	assert.Zero(t, daily.VolumeUsd)
}

func TestAttributeVolumeCommissionUsesPreTradeTier(t *testing.T) {
	attribution, store, notifier, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	// Park the referrer just under the SILVER threshold.
	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	referrer.TotalVolume = 499_000
	require.NoError(t, store.SaveReferrer(ctx, referrer))

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 2000))

	referrer, err = store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.InDelta(t, 501_000, referrer.TotalVolume, 1e-6)
	assert.Equal(t, models.TierSilver, referrer.Tier)
	// 2000 at the BRONZE rate, promotion never applies retroactively.
	assert.InDelta(t, 200, referrer.PendingPayout, 1e-6)

	messages := notifier.captured()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "BRONZE")
	assert.Contains(t, messages[0], "SILVER")
}

func TestAttributeVolumeExactThresholdPromotes(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 500_000))

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.Equal(t, models.TierSilver, referrer.Tier, "exactly 500 000 is SILVER, not BRONZE")
	// The whole trade was commissioned at the pre-trade BRONZE rate.
	assert.InDelta(t, 50_000, referrer.PendingPayout, 1e-6)
}

func TestAttributeVolumeTierNeverRegresses(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 2_000_000))
	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	require.Equal(t, models.TierGold, referrer.Tier)

	lastOrdinal := referrer.Tier.Ordinal()
	for i := 0; i < 20; i++ {
		require.NoError(t, attribution.AttributeVolume(ctx, trader, 100))
		referrer, err = store.GetReferrerByWallet(ctx, referrerWallet)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, referrer.Tier.Ordinal(), lastOrdinal)
		lastOrdinal = referrer.Tier.Ordinal()
	}
}

func TestAttributeVolumeCommissionLedgerBalances(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	// 500 000 at BRONZE 0.10, then 100 at SILVER 0.15.
	require.NoError(t, attribution.AttributeVolume(ctx, trader, 500_000))
	require.NoError(t, attribution.AttributeVolume(ctx, trader, 100))

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.InDelta(t, 50_015, referrer.PendingPayout+referrer.TotalEarned, 1e-6)

	// pending + earned must equal the sum of the daily commission rows.
	rows, err := store.ListDailyVolumes(ctx, referrer.ID)
	require.NoError(t, err)
	var commissionSum, volumeSum float64
	for _, row := range rows {
		commissionSum += row.CommissionUsd
		volumeSum += row.VolumeUsd
	}
	assert.InDelta(t, referrer.PendingPayout+referrer.TotalEarned, commissionSum, 1e-6)
	assert.InDelta(t, referrer.TotalVolume, volumeSum, 1e-6)
}

func TestAttributeVolumeConcurrent(t *testing.T) {
	attribution, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, attribution.AttributeVolume(ctx, trader, 10))
		}()
	}
	wg.Wait()

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.InDelta(t, 1000, referrer.TotalVolume, 1e-6)
	assert.InDelta(t, 100, referrer.PendingPayout, 1e-6)

	daily, err := store.GetDailyVolume(ctx, referrer.ID, models.RollupDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 100, daily.TradeCount)
	assert.InDelta(t, 1000, daily.VolumeUsd, 1e-6)
}

// serializationFlakyStore fails its first few transactions with a
// serialization failure, then behaves like the wrapped store.
type serializationFlakyStore struct {
	repository.Store
	mu       sync.Mutex
	failures int
	attempts int
}

func (s *serializationFlakyStore) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	s.mu.Unlock()
	return s.Store.Transaction(ctx, fn)
}

func TestAttributeVolumeRetriesSerializationFailures(t *testing.T) {
	_, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	// Three transient failures must still leave one retry in the budget.
	flaky := &serializationFlakyStore{Store: store, failures: 3}
	attribution := NewAttributionService(AttributionServiceOptions{
		Store:  flaky,
		Logger: logger.NewDefaultLogger(logger.ErrorLevel),
	})

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 1000))
	assert.Equal(t, 4, flaky.attempts)

	referrer, err := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, err)
	assert.InDelta(t, 1000, referrer.TotalVolume, 1e-6)
	assert.InDelta(t, 100, referrer.PendingPayout, 1e-6)
}

func TestAttributeVolumeConflictAfterRetriesExhausted(t *testing.T) {
	_, store, _, referrerWallet, trader := setupAttribution(t)
	ctx := context.Background()

	flaky := &serializationFlakyStore{Store: store, failures: 4}
	attribution := NewAttributionService(AttributionServiceOptions{
		Store:  flaky,
		Logger: logger.NewDefaultLogger(logger.ErrorLevel),
	})

	err := attribution.AttributeVolume(ctx, trader, 1000)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))
	assert.Equal(t, 4, flaky.attempts)

	referrer, getErr := store.GetReferrerByWallet(ctx, referrerWallet)
	require.NoError(t, getErr)
	assert.Zero(t, referrer.TotalVolume)
}

func TestRollingVolumeDecay(t *testing.T) {
	attribution, store, _, _, trader := setupAttribution(t)
	ctx := context.Background()
	log := logger.NewDefaultLogger(logger.ErrorLevel)

	require.NoError(t, attribution.AttributeVolume(ctx, trader, 1000))

	// Backdate the referral's activity past the window.
	referral, err := store.GetReferralByReferee(ctx, trader)
	require.NoError(t, err)
	referral.LastActiveAt = time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, store.SaveReferral(ctx, referral))

	require.NoError(t, NewRollingVolumeService(store, log).DecayRollingVolumes())

	referral, err = store.GetReferralByReferee(ctx, trader)
	require.NoError(t, err)
	assert.Zero(t, referral.Last30DaysVolume)
	assert.InDelta(t, 1000, referral.LifetimeVolume, 1e-6, "lifetime volume untouched by decay")
}
