package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "affiliate/errors"
	"affiliate/models"
	"affiliate/repository"
	"affiliate/services/logger"
	"affiliate/services/notification"
	"affiliate/validator"

	"github.com/redis/go-redis/v9"
)

const (
	// initial attempt plus up to 3 retries at 25/50/100 ms
	maxAttributionRetries  = 3
	attributionBackoffBase = 25 * time.Millisecond
)

// AttributionService is the transactional engine that credits a trade's USD
// volume to the trader's referrer: per-referee accumulators, the daily
// roll-up, commission at the pre-trade tier, and monotone tier promotion,
// all inside one transaction.
type AttributionService struct {
	store    repository.Store
	redis    *redis.Client
	notifier notification.Service
	logger   logger.Logger
}

type AttributionServiceOptions struct {
	Store    repository.Store
	Redis    *redis.Client
	Notifier notification.Service
	Logger   logger.Logger
}

func NewAttributionService(opts AttributionServiceOptions) *AttributionService {
	return &AttributionService{
		store:    opts.Store,
		redis:    opts.Redis,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// attributionResult carries what the post-commit hooks need out of the
// transaction closure.
type attributionResult struct {
	skipped        bool
	referrerWallet string
	promoted       bool
	fromTier       models.Tier
	toTier         models.Tier
}

// AttributeVolume credits volumeUsd of trading volume to whoever referred
// traderAddress. A trader nobody referred is a silent no-op. Serialization
// failures are retried with backoff before surfacing CONFLICT; any other
// failure rolls the whole transaction back.
func (s *AttributionService) AttributeVolume(ctx context.Context, traderAddress string, volumeUsd float64) error {
	if err := validator.ValidateVolume(volumeUsd); err != nil {
		return err
	}
	trader := strings.ToLower(traderAddress)

	var lastErr error
	for attempt := 0; attempt <= maxAttributionRetries; attempt++ {
		if attempt > 0 {
			backoff := attributionBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return apperrors.NewAppError(apperrors.ErrCodeTimeout, "request deadline exceeded", ctx.Err())
			case <-time.After(backoff):
			}
		}
		result, err := s.attributeOnce(ctx, trader, volumeUsd)
		if err == nil {
			s.afterCommit(ctx, result)
			return nil
		}
		if repository.IsSerializationFailure(err) {
			s.logger.Debug("serialization failure attributing volume for %s, retrying", trader)
			lastErr = err
			continue
		}
		return asAppError("attribute volume", err)
	}
	return apperrors.NewAppError(apperrors.ErrCodeConflict,
		"attribution kept conflicting with concurrent updates, retry later", lastErr)
}

func (s *AttributionService) attributeOnce(ctx context.Context, trader string, usd float64) (*attributionResult, error) {
	result := &attributionResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		referral, err := tx.GetReferralByRefereeForUpdate(ctx, trader)
		if errors.Is(err, repository.ErrNotFound) {
			// not a referred trader
			result.skipped = true
			return nil
		}
		if err != nil {
			return err
		}

		// Referral row locked first, referrer row second; the consistent
		// order keeps concurrent attributions off each other's toes.
		referrer, err := tx.GetReferrerForUpdate(ctx, referral.ReferrerID)
		if err != nil {
			return err
		}

		now := time.Now()
		referral.LifetimeVolume += usd
		// Accumulate only; the nightly job applies the coarse decay. See
		// jobs/cron.go for the rolling-window caveat.
		referral.Last30DaysVolume += usd
		referral.LastActiveAt = now
		if err := tx.SaveReferral(ctx, referral); err != nil {
			return err
		}

		// Commission always uses the tier as it stood before this trade;
		// a promotion below never applies retroactively.
		commission := usd * referrer.Tier.CommissionRate()

		if err := tx.UpsertDailyVolume(ctx, referrer.ID, models.RollupDate(now), usd, commission); err != nil {
			return err
		}

		referrer.TotalVolume += usd
		referrer.PendingPayout += commission

		if newTier := models.TierForVolume(referrer.TotalVolume); newTier.Ordinal() > referrer.Tier.Ordinal() {
			s.logger.Info("upgrading %s from %s to %s", referrer.WalletAddress, referrer.Tier, newTier)
			result.promoted = true
			result.fromTier = referrer.Tier
			result.toTier = newTier
			referrer.Tier = newTier
		}
		if err := tx.SaveReferrer(ctx, referrer); err != nil {
			return err
		}

		result.referrerWallet = referrer.WalletAddress
		s.logger.Debug("attributed $%.2f volume, $%.2f commission to %s", usd, commission, referrer.WalletAddress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// afterCommit runs the non-transactional side effects. Neither the cache
// invalidation nor the broadcast may fail an already-committed attribution.
func (s *AttributionService) afterCommit(ctx context.Context, result *attributionResult) {
	if result.skipped {
		return
	}
	if s.redis != nil {
		if err := DeleteFromRedis(ctx, s.redis, statsCacheKey(result.referrerWallet)); err != nil {
			s.logger.Error("stats cache invalidation for %s: %v", result.referrerWallet, err)
		}
	}
	if result.promoted && s.notifier != nil {
		message := notification.NewPromotionMessageBuilder(result.referrerWallet, result.fromTier, result.toTier).Build()
		if err := s.notifier.SendMessage(message); err != nil {
			s.logger.Error("promotion broadcast for %s: %v", result.referrerWallet, err)
		}
	}
}
