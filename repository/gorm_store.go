package repository

import (
	"context"
	"errors"
	"time"

	"affiliate/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a Postgres database through GORM.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// ==================== Referrers ====================

func (s *GormStore) CreateReferrer(ctx context.Context, referrer *models.Referrer) error {
	return s.db.WithContext(ctx).Create(referrer).Error
}

func (s *GormStore) SaveReferrer(ctx context.Context, referrer *models.Referrer) error {
	return s.db.WithContext(ctx).Save(referrer).Error
}

func (s *GormStore) GetReferrerByWallet(ctx context.Context, wallet string) (*models.Referrer, error) {
	var referrer models.Referrer
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&referrer).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &referrer, nil
}

func (s *GormStore) GetReferrerByCode(ctx context.Context, code string) (*models.Referrer, error) {
	var referrer models.Referrer
	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&referrer).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &referrer, nil
}

func (s *GormStore) GetReferrerForUpdate(ctx context.Context, id uuid.UUID) (*models.Referrer, error) {
	var referrer models.Referrer
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&referrer).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &referrer, nil
}

func (s *GormStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Referrer{}).
		Where("referral_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ==================== Referrals ====================

func (s *GormStore) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return s.db.WithContext(ctx).Create(referral).Error
}

func (s *GormStore) SaveReferral(ctx context.Context, referral *models.Referral) error {
	return s.db.WithContext(ctx).Save(referral).Error
}

func (s *GormStore) GetReferralByReferee(ctx context.Context, referee string) (*models.Referral, error) {
	var referral models.Referral
	err := s.db.WithContext(ctx).Where("referee_address = ?", referee).First(&referral).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &referral, nil
}

func (s *GormStore) GetReferralByRefereeForUpdate(ctx context.Context, referee string) (*models.Referral, error) {
	var referral models.Referral
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referee_address = ?", referee).First(&referral).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &referral, nil
}

func (s *GormStore) ListReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at ASC").
		Find(&referrals).Error
	return referrals, err
}

func (s *GormStore) CountReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ?", referrerID).Count(&count).Error
	return count, err
}

func (s *GormStore) ResetStaleRollingVolumes(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("last_active_at < ? AND last_30_days_volume <> 0", cutoff).
		Update("last_30_days_volume", 0)
	return result.RowsAffected, result.Error
}

// ==================== Daily roll-up ====================

func (s *GormStore) UpsertDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time, usd, commission float64) error {
	row := models.ReferralVolume{
		ReferrerID:    referrerID,
		Date:          date,
		VolumeUsd:     usd,
		CommissionUsd: commission,
		TradeCount:    1,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "referrer_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"volume_usd":     gorm.Expr("referral_volumes.volume_usd + ?", usd),
			"commission_usd": gorm.Expr("referral_volumes.commission_usd + ?", commission),
			"trade_count":    gorm.Expr("referral_volumes.trade_count + 1"),
			"updated_at":     time.Now(),
		}),
	}).Create(&row).Error
}

func (s *GormStore) GetDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time) (*models.ReferralVolume, error) {
	var row models.ReferralVolume
	err := s.db.WithContext(ctx).
		Where("referrer_id = ? AND date = ?", referrerID, date).
		First(&row).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &row, nil
}

func (s *GormStore) ListDailyVolumes(ctx context.Context, referrerID uuid.UUID) ([]models.ReferralVolume, error) {
	var rows []models.ReferralVolume
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// ==================== Payouts ====================

func (s *GormStore) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return s.db.WithContext(ctx).Create(payout).Error
}

func (s *GormStore) ListPayoutsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&payouts).Error
	return payouts, err
}

// ==================== Error classification ====================

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// IsDuplicateKey reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsSerializationFailure reports whether err is a serialization failure or
// deadlock (SQLSTATE 40001, 40P01) that is safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
