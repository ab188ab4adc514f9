package services

import (
	"context"
	"errors"
	"strings"

	"affiliate/dto"
	apperrors "affiliate/errors"
	"affiliate/models"
	"affiliate/repository"
	"affiliate/services/logger"
	"affiliate/validator"

	"github.com/redis/go-redis/v9"
)

const maxCodeAttempts = 10

// AffiliateService covers registration, referral tracking, and the read-side
// projections (stats, referral list, payout history, lookups).
type AffiliateService struct {
	store  repository.Store
	redis  *redis.Client
	logger logger.Logger
}

type AffiliateServiceOptions struct {
	Store  repository.Store
	Redis  *redis.Client
	Logger logger.Logger
}

func NewAffiliateService(opts AffiliateServiceOptions) *AffiliateService {
	return &AffiliateService{
		store:  opts.Store,
		redis:  opts.Redis,
		logger: opts.Logger,
	}
}

// asAppError normalizes storage and context failures into AppErrors;
// AppErrors pass through untouched.
func asAppError(op string, err error) error {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewAppError(apperrors.ErrCodeTimeout, "request deadline exceeded", err)
	}
	return apperrors.NewAppError(apperrors.ErrCodeStorageError, op+" failed", err)
}

// ==================== Registration ====================

// RegisterAffiliate registers a wallet as an affiliate. Idempotent: an
// already-registered wallet gets its existing row back unchanged.
func (s *AffiliateService) RegisterAffiliate(ctx context.Context, walletAddress string) (*models.Referrer, error) {
	if err := validator.ValidateWalletAddress(walletAddress); err != nil {
		return nil, err
	}
	wallet := strings.ToLower(walletAddress)

	var referrer *models.Referrer
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.GetReferrerByWallet(ctx, wallet)
		if err == nil {
			s.logger.Info("wallet %s already registered as affiliate", wallet)
			referrer = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		code, err := s.allocateReferralCode(ctx, tx, wallet)
		if err != nil {
			return err
		}

		newReferrer := &models.Referrer{
			WalletAddress: wallet,
			ReferralCode:  code,
			Tier:          models.TierBronze,
		}
		if err := tx.CreateReferrer(ctx, newReferrer); err != nil {
			return err
		}
		s.logger.Info("registered new affiliate %s with code %s", wallet, code)
		referrer = newReferrer
		return nil
	})
	if err != nil {
		// A concurrent registration of the same wallet can slip past the
		// read; the unique index catches it and the read path settles it.
		if repository.IsDuplicateKey(err) {
			if existing, readErr := s.store.GetReferrerByWallet(ctx, wallet); readErr == nil {
				return existing, nil
			}
		}
		return nil, asAppError("register affiliate", err)
	}
	return referrer, nil
}

// allocateReferralCode derives the code from the address prefix and walks the
// 'A'..'J' suffix fallback on collision. The raw 8-hex-char space has 2^32
// entries, so the loop almost never runs.
func (s *AffiliateService) allocateReferralCode(ctx context.Context, tx repository.Store, wallet string) (string, error) {
	code := models.GenerateReferralCode(wallet)
	for attempt := 0; ; attempt++ {
		exists, err := tx.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		if attempt >= maxCodeAttempts {
			return "", apperrors.NewAppError(apperrors.ErrCodeCodeCollision,
				"could not allocate a free referral code for "+wallet, nil)
		}
		code = code + string(rune('A'+attempt))
	}
}

// ==================== Referral tracking ====================

// TrackReferral records that referee signed up through referralCode.
// Re-tracking an already-tracked referee is not an error: the existing row
// comes back unchanged, whatever code was presented.
func (s *AffiliateService) TrackReferral(ctx context.Context, referralCode, refereeAddress string) (*models.Referral, error) {
	if err := validator.ValidateWalletAddress(refereeAddress); err != nil {
		return nil, err
	}
	if err := validator.ValidateReferralCode(referralCode); err != nil {
		return nil, err
	}
	referee := strings.ToLower(refereeAddress)
	code := strings.ToUpper(referralCode)

	var referral *models.Referral
	var referrerWallet string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.GetReferralByReferee(ctx, referee)
		if err == nil {
			s.logger.Info("referee %s already tracked", referee)
			referral = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		referrer, err := tx.GetReferrerByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewAppError(apperrors.ErrCodeUnknownCode, "invalid referral code: "+code, nil)
		}
		if err != nil {
			return err
		}
		if referrer.WalletAddress == referee {
			return apperrors.NewAppError(apperrors.ErrCodeSelfReferral, "cannot refer yourself", nil)
		}

		newReferral := &models.Referral{
			ReferrerID:     referrer.ID,
			RefereeAddress: referee,
		}
		if err := tx.CreateReferral(ctx, newReferral); err != nil {
			return err
		}
		s.logger.Info("tracked referral: %s referred by %s", referee, referrer.WalletAddress)
		referral = newReferral
		referrerWallet = referrer.WalletAddress
		return nil
	})
	if err != nil {
		if repository.IsDuplicateKey(err) {
			if existing, readErr := s.store.GetReferralByReferee(ctx, referee); readErr == nil {
				return existing, nil
			}
		}
		return nil, asAppError("track referral", err)
	}
	// totalReferrals changed, so any cached stats for the referrer are stale
	if s.redis != nil && referrerWallet != "" {
		if err := DeleteFromRedis(ctx, s.redis, statsCacheKey(referrerWallet)); err != nil {
			s.logger.Error("stats cache invalidation for %s: %v", referrerWallet, err)
		}
	}
	return referral, nil
}

// ==================== Statistics ====================

// Stats builds the dashboard projection for a referrer. Results are cached
// in Redis for a short TTL; cache errors fall through to the store.
func (s *AffiliateService) Stats(ctx context.Context, walletAddress string) (*dto.AffiliateStats, error) {
	if err := validator.ValidateWalletAddress(walletAddress); err != nil {
		return nil, err
	}
	wallet := strings.ToLower(walletAddress)

	if s.redis != nil {
		var cached dto.AffiliateStats
		hit, err := GetFromRedis(ctx, s.redis, statsCacheKey(wallet), &cached)
		if err != nil {
			s.logger.Error("stats cache read for %s: %v", wallet, err)
		} else if hit {
			return &cached, nil
		}
	}

	referrer, err := s.requireReferrer(ctx, wallet)
	if err != nil {
		return nil, err
	}
	referralCount, err := s.store.CountReferralsByReferrer(ctx, referrer.ID)
	if err != nil {
		return nil, asAppError("load stats", err)
	}

	stats := &dto.AffiliateStats{
		WalletAddress:        referrer.WalletAddress,
		ReferralCode:         referrer.ReferralCode,
		Tier:                 referrer.Tier,
		CommissionRate:       referrer.Tier.CommissionRate(),
		TotalVolumeGenerated: referrer.TotalVolume,
		TotalReferrals:       referralCount,
		TotalEarned:          referrer.TotalEarned,
		PendingPayout:        referrer.PendingPayout,
		VolumeToNextTier:     models.VolumeToNext(referrer.Tier, referrer.TotalVolume),
	}
	if next, ok := referrer.Tier.Next(); ok {
		stats.NextTier = string(next)
	}

	if s.redis != nil {
		if err := SetToRedis(ctx, s.redis, statsCacheKey(wallet), stats, statsCacheTTL); err != nil {
			s.logger.Error("stats cache write for %s: %v", wallet, err)
		}
	}
	return stats, nil
}

// Referrals lists the wallets referred by an affiliate, oldest first.
func (s *AffiliateService) Referrals(ctx context.Context, walletAddress string) ([]dto.ReferralItem, error) {
	if err := validator.ValidateWalletAddress(walletAddress); err != nil {
		return nil, err
	}
	referrer, err := s.requireReferrer(ctx, strings.ToLower(walletAddress))
	if err != nil {
		return nil, err
	}
	referrals, err := s.store.ListReferralsByReferrer(ctx, referrer.ID)
	if err != nil {
		return nil, asAppError("list referrals", err)
	}
	items := make([]dto.ReferralItem, 0, len(referrals))
	for _, r := range referrals {
		items = append(items, dto.ReferralItem{
			Address:          r.RefereeAddress,
			JoinedAt:         r.CreatedAt,
			LifetimeVolume:   r.LifetimeVolume,
			Last30DaysVolume: r.Last30DaysVolume,
			LastActiveAt:     r.LastActiveAt,
		})
	}
	return items, nil
}

// Payouts lists the disbursement history for an affiliate, newest first.
func (s *AffiliateService) Payouts(ctx context.Context, walletAddress string) ([]dto.PayoutItem, error) {
	if err := validator.ValidateWalletAddress(walletAddress); err != nil {
		return nil, err
	}
	referrer, err := s.requireReferrer(ctx, strings.ToLower(walletAddress))
	if err != nil {
		return nil, err
	}
	payouts, err := s.store.ListPayoutsByReferrer(ctx, referrer.ID)
	if err != nil {
		return nil, asAppError("list payouts", err)
	}
	items := make([]dto.PayoutItem, 0, len(payouts))
	for _, p := range payouts {
		items = append(items, dto.PayoutItem{
			ID:          p.ID,
			Amount:      p.AmountUsd,
			Status:      p.Status,
			TxHash:      p.TxHash,
			CreatedAt:   p.CreatedAt,
			ProcessedAt: p.ProcessedAt,
		})
	}
	return items, nil
}

func (s *AffiliateService) requireReferrer(ctx context.Context, wallet string) (*models.Referrer, error) {
	referrer, err := s.store.GetReferrerByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewAppError(apperrors.ErrCodeNotRegistered, "wallet not registered as affiliate", nil)
	}
	if err != nil {
		return nil, asAppError("load referrer", err)
	}
	return referrer, nil
}

// ==================== Lookups ====================

// FindByWallet returns the referrer for a wallet, or nil when unregistered.
func (s *AffiliateService) FindByWallet(ctx context.Context, walletAddress string) (*models.Referrer, error) {
	referrer, err := s.store.GetReferrerByWallet(ctx, strings.ToLower(walletAddress))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, asAppError("lookup wallet", err)
	}
	return referrer, nil
}

// FindByCode returns the referrer owning a referral code, or nil.
func (s *AffiliateService) FindByCode(ctx context.Context, referralCode string) (*models.Referrer, error) {
	referrer, err := s.store.GetReferrerByCode(ctx, strings.ToUpper(referralCode))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, asAppError("lookup code", err)
	}
	return referrer, nil
}
