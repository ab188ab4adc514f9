package repository

import (
	"context"
	"errors"
	"time"

	"affiliate/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get* lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract for the affiliate tables. All mutating
// call sequences that must be atomic run inside Transaction; the *ForUpdate
// lookups take a row lock for the remainder of the enclosing transaction.
type Store interface {
	// Transaction runs fn atomically. A nested call reuses the ambient
	// transaction instead of opening a new one.
	Transaction(ctx context.Context, fn func(Store) error) error

	CreateReferrer(ctx context.Context, referrer *models.Referrer) error
	SaveReferrer(ctx context.Context, referrer *models.Referrer) error
	GetReferrerByWallet(ctx context.Context, wallet string) (*models.Referrer, error)
	GetReferrerByCode(ctx context.Context, code string) (*models.Referrer, error)
	GetReferrerForUpdate(ctx context.Context, id uuid.UUID) (*models.Referrer, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)

	CreateReferral(ctx context.Context, referral *models.Referral) error
	SaveReferral(ctx context.Context, referral *models.Referral) error
	GetReferralByReferee(ctx context.Context, referee string) (*models.Referral, error)
	GetReferralByRefereeForUpdate(ctx context.Context, referee string) (*models.Referral, error)
	ListReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error)
	CountReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error)
	// ResetStaleRollingVolumes zeroes last_30_days_volume for referrals whose
	// last activity is older than cutoff. Returns the number of rows touched.
	ResetStaleRollingVolumes(ctx context.Context, cutoff time.Time) (int64, error)

	// UpsertDailyVolume adds (usd, commission, one trade) to the roll-up row
	// keyed by (referrerID, date), creating it if absent. The unique key
	// serializes concurrent upserts for the same day.
	UpsertDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time, usd, commission float64) error
	GetDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time) (*models.ReferralVolume, error)
	ListDailyVolumes(ctx context.Context, referrerID uuid.UUID) ([]models.ReferralVolume, error)

	CreatePayout(ctx context.Context, payout *models.Payout) error
	ListPayoutsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Payout, error)
}
