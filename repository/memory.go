package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"affiliate/models"

	"github.com/google/uuid"
)

type volumeKey struct {
	referrerID uuid.UUID
	date       time.Time
}

type memData struct {
	referrers map[uuid.UUID]models.Referrer
	referrals map[uuid.UUID]models.Referral
	volumes   map[volumeKey]models.ReferralVolume
	payouts   []models.Payout
}

func (d *memData) clone() *memData {
	c := &memData{
		referrers: make(map[uuid.UUID]models.Referrer, len(d.referrers)),
		referrals: make(map[uuid.UUID]models.Referral, len(d.referrals)),
		volumes:   make(map[volumeKey]models.ReferralVolume, len(d.volumes)),
		payouts:   make([]models.Payout, len(d.payouts)),
	}
	for k, v := range d.referrers {
		c.referrers[k] = v
	}
	for k, v := range d.referrals {
		c.referrals[k] = v
	}
	for k, v := range d.volumes {
		c.volumes[k] = v
	}
	copy(c.payouts, d.payouts)
	return c
}

// MemoryStore is an in-process Store serialized by a single mutex, giving the
// same transactional guarantees the Postgres store gets from row locks. Used
// by the test suite and for running the service without a database.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memData{
			referrers: make(map[uuid.UUID]models.Referrer),
			referrals: make(map[uuid.UUID]models.Referral),
			volumes:   make(map[volumeKey]models.ReferralVolume),
		},
	}
}

// lock is a no-op inside a transaction: the transaction already holds the
// mutex for its whole extent.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	tx := &MemoryStore{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// ==================== Referrers ====================

func (s *MemoryStore) CreateReferrer(ctx context.Context, referrer *models.Referrer) error {
	defer s.lock()()
	if referrer.ID == uuid.Nil {
		referrer.ID = uuid.New()
	}
	now := time.Now()
	referrer.CreatedAt = now
	referrer.UpdatedAt = now
	s.data.referrers[referrer.ID] = *referrer
	return nil
}

func (s *MemoryStore) SaveReferrer(ctx context.Context, referrer *models.Referrer) error {
	defer s.lock()()
	referrer.UpdatedAt = time.Now()
	s.data.referrers[referrer.ID] = *referrer
	return nil
}

func (s *MemoryStore) GetReferrerByWallet(ctx context.Context, wallet string) (*models.Referrer, error) {
	defer s.lock()()
	for _, r := range s.data.referrers {
		if r.WalletAddress == wallet {
			out := r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetReferrerByCode(ctx context.Context, code string) (*models.Referrer, error) {
	defer s.lock()()
	for _, r := range s.data.referrers {
		if r.ReferralCode == code {
			out := r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetReferrerForUpdate(ctx context.Context, id uuid.UUID) (*models.Referrer, error) {
	defer s.lock()()
	r, ok := s.data.referrers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *MemoryStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	defer s.lock()()
	for _, r := range s.data.referrers {
		if r.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

// ==================== Referrals ====================

func (s *MemoryStore) CreateReferral(ctx context.Context, referral *models.Referral) error {
	defer s.lock()()
	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	referral.CreatedAt = time.Now()
	s.data.referrals[referral.ID] = *referral
	return nil
}

func (s *MemoryStore) SaveReferral(ctx context.Context, referral *models.Referral) error {
	defer s.lock()()
	s.data.referrals[referral.ID] = *referral
	return nil
}

func (s *MemoryStore) GetReferralByReferee(ctx context.Context, referee string) (*models.Referral, error) {
	defer s.lock()()
	return s.findReferralByReferee(referee)
}

func (s *MemoryStore) GetReferralByRefereeForUpdate(ctx context.Context, referee string) (*models.Referral, error) {
	defer s.lock()()
	return s.findReferralByReferee(referee)
}

func (s *MemoryStore) findReferralByReferee(referee string) (*models.Referral, error) {
	for _, r := range s.data.referrals {
		if r.RefereeAddress == referee {
			out := r
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	defer s.lock()()
	var out []models.Referral
	for _, r := range s.data.referrals {
		if r.ReferrerID == referrerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	defer s.lock()()
	var count int64
	for _, r := range s.data.referrals {
		if r.ReferrerID == referrerID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ResetStaleRollingVolumes(ctx context.Context, cutoff time.Time) (int64, error) {
	defer s.lock()()
	var touched int64
	for id, r := range s.data.referrals {
		if r.LastActiveAt.Before(cutoff) && r.Last30DaysVolume != 0 {
			r.Last30DaysVolume = 0
			s.data.referrals[id] = r
			touched++
		}
	}
	return touched, nil
}

// ==================== Daily roll-up ====================

func (s *MemoryStore) UpsertDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time, usd, commission float64) error {
	defer s.lock()()
	key := volumeKey{referrerID: referrerID, date: date}
	row, ok := s.data.volumes[key]
	if !ok {
		row = models.ReferralVolume{
			ID:         uuid.New(),
			ReferrerID: referrerID,
			Date:       date,
			CreatedAt:  time.Now(),
		}
	}
	row.VolumeUsd += usd
	row.CommissionUsd += commission
	row.TradeCount++
	row.UpdatedAt = time.Now()
	s.data.volumes[key] = row
	return nil
}

func (s *MemoryStore) GetDailyVolume(ctx context.Context, referrerID uuid.UUID, date time.Time) (*models.ReferralVolume, error) {
	defer s.lock()()
	row, ok := s.data.volumes[volumeKey{referrerID: referrerID, date: date}]
	if !ok {
		return nil, ErrNotFound
	}
	out := row
	return &out, nil
}

func (s *MemoryStore) ListDailyVolumes(ctx context.Context, referrerID uuid.UUID) ([]models.ReferralVolume, error) {
	defer s.lock()()
	var out []models.ReferralVolume
	for _, row := range s.data.volumes {
		if row.ReferrerID == referrerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ==================== Payouts ====================

func (s *MemoryStore) CreatePayout(ctx context.Context, payout *models.Payout) error {
	defer s.lock()()
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	if payout.CreatedAt.IsZero() {
		payout.CreatedAt = time.Now()
	}
	s.data.payouts = append(s.data.payouts, *payout)
	return nil
}

func (s *MemoryStore) ListPayoutsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Payout, error) {
	defer s.lock()()
	var out []models.Payout
	for _, p := range s.data.payouts {
		if p.ReferrerID == referrerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
